package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certpass/internal/fingerprint"
	"certpass/internal/qr"
	"certpass/internal/record"
	"certpass/internal/record/memory"
	"certpass/internal/render"
	"certpass/internal/template"
	"certpass/pkg/platform/audit"
)

const (
	testSalt      = "Linpack2025"
	mehulDigest   = "369c1e3444d8ae3f63412d05663acd8476a3b198036903976c0e1632d9368434"
	prayushDigest = "097e5036fed7680e4180b73e2e985a16fdbc723747bb19b076e94c155946b5d0"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func testTemplate() template.Template {
	return template.Template{
		Width:  400,
		Height: 300,
		Elements: []template.Element{
			{Kind: template.KindText, X: 20, Y: 40, Width: 360, Height: 40,
				Text: &template.TextProps{Content: "This certifies {{name}}"}},
			{Kind: template.KindQRCode, X: 300, Y: 180, Width: 80, Height: 80},
		},
	}
}

func testRequest() Request {
	return Request{
		Template: testTemplate(),
		Recipients: []fingerprint.Recipient{
			{Name: "MEHUL KHARE", Email: "mehul@example.com", RegistrationNumber: "24BAI10631", TeamID: "1"},
			{Name: "PRAYUSH PATEL", Email: "prayush@example.com", RegistrationNumber: "24BCE10488", TeamID: "1"},
		},
		Config: fingerprint.Config{
			IncludeName:               true,
			IncludeRegistrationNumber: true,
			IncludeTeamID:             true,
			Salt:                      testSalt,
		},
	}
}

func newRealPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	renderer, err := render.New(render.Options{Format: render.FormatPNG})
	require.NoError(t, err)
	opts = append(opts, WithLogger(testLogger()))
	p, err := New(qr.New(), renderer, opts...)
	require.NoError(t, err)
	return p
}

// failingRenderer fails for recipients whose substituted name matches.
type failingRenderer struct {
	failName string
}

func (r *failingRenderer) Render(_ context.Context, _ *template.Template, data template.Data, _ []byte) ([]byte, error) {
	if data["name"] == r.failName {
		return nil, errors.New("background image unreachable")
	}
	return []byte("rendered"), nil
}

// failingEncoder always errors.
type failingEncoder struct{}

func (failingEncoder) Encode(string, qr.Options) ([]byte, error) {
	return nil, errors.New("payload too long for version")
}

// failingRecordStore rejects every save.
type failingRecordStore struct{}

func (failingRecordStore) Save(context.Context, record.Record) error {
	return errors.New("connection refused")
}

func (failingRecordStore) FindByFingerprint(context.Context, string) (record.Record, error) {
	return record.Record{}, errors.New("connection refused")
}

func TestRunGeneratesDocumentsInOrder(t *testing.T) {
	store := memory.New()
	pub := audit.NewMemoryPublisher()
	p := newRealPipeline(t, WithRecordStore(store), WithAuditPublisher(pub))

	var percents []int
	docs, err := p.Run(context.Background(), testRequest(), func(_, _, percent int) {
		percents = append(percents, percent)
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "mehul@example.com", docs[0].RecipientID)
	assert.Equal(t, mehulDigest, docs[0].Fingerprint)
	assert.Equal(t, prayushDigest, docs[1].Fingerprint)
	for _, d := range docs {
		assert.Equal(t, StatusGenerated, d.Status)
		assert.NotEmpty(t, d.CodeImage)
		assert.NotEmpty(t, d.Document)
		assert.NotEmpty(t, d.ID)
	}

	assert.Equal(t, []int{50, 100}, percents, "progress is monotonic and ends at 100")

	// Records were seeded for later verification.
	rec, err := store.FindByFingerprint(context.Background(), mehulDigest)
	require.NoError(t, err)
	assert.Equal(t, "MEHUL KHARE", rec.Name)

	assert.Len(t, pub.ByAction(audit.ActionDocumentGenerated), 2)
	assert.Len(t, pub.ByAction(audit.ActionBatchCompleted), 1)
}

func TestRunPartialFailureIsolation(t *testing.T) {
	p, err := New(qr.New(), &failingRenderer{failName: "PRAYUSH PATEL"}, WithLogger(testLogger()))
	require.NoError(t, err)

	req := testRequest()
	req.Recipients = append(req.Recipients, fingerprint.Recipient{
		Name: "THIRD PERSON", Email: "third@example.com", TeamID: "2",
	})

	docs, err := p.Run(context.Background(), req, nil)
	require.NoError(t, err)
	require.Len(t, docs, 3, "one bad row must not stop the run")

	assert.Equal(t, StatusGenerated, docs[0].Status)
	assert.Equal(t, StatusFailed, docs[1].Status)
	assert.Contains(t, docs[1].Error, "render")
	assert.Equal(t, StatusGenerated, docs[2].Status)

	summary := Summarize(docs)
	assert.Equal(t, Summary{Total: 3, Successful: 2, Failed: 1}, summary)
}

func TestRunValidationFailsRow(t *testing.T) {
	p := newRealPipeline(t)

	req := testRequest()
	req.Recipients = append(req.Recipients,
		fingerprint.Recipient{Name: "", Email: "noname@example.com"},
		fingerprint.Recipient{Name: "BAD EMAIL", Email: "not-an-email"},
	)

	docs, err := p.Run(context.Background(), req, nil)
	require.NoError(t, err)
	require.Len(t, docs, 4)

	assert.Equal(t, StatusFailed, docs[2].Status)
	assert.Contains(t, docs[2].Error, "name is required")
	assert.Empty(t, docs[2].Fingerprint, "validation failures never reach hashing")
	assert.Equal(t, StatusFailed, docs[3].Status)
	assert.Contains(t, docs[3].Error, "email")
}

func TestRunEncodingFailureFailsRow(t *testing.T) {
	p, err := New(failingEncoder{}, &failingRenderer{}, WithLogger(testLogger()))
	require.NoError(t, err)

	docs, err := p.Run(context.Background(), testRequest(), nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, d := range docs {
		assert.Equal(t, StatusFailed, d.Status)
		assert.Contains(t, d.Error, "encode")
		assert.NotEmpty(t, d.Fingerprint, "hashing precedes encoding")
	}
}

func TestRunRecordStoreFailureFailsRow(t *testing.T) {
	p, err := New(qr.New(), &failingRenderer{}, WithLogger(testLogger()), WithRecordStore(failingRecordStore{}))
	require.NoError(t, err)

	docs, err := p.Run(context.Background(), testRequest(), nil)
	require.NoError(t, err)
	for _, d := range docs {
		assert.Equal(t, StatusFailed, d.Status)
		assert.Contains(t, d.Error, "persist record")
	}
}

func TestRunCancellationReturnsPartial(t *testing.T) {
	p := newRealPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	docs, err := p.Run(ctx, testRequest(), func(completed, _, _ int) {
		if completed == 1 {
			cancel()
		}
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, docs, 1, "remaining recipients are absent, not failed")
	assert.Equal(t, StatusGenerated, docs[0].Status)
}

func TestRunRejectsEmptyBatch(t *testing.T) {
	p := newRealPipeline(t)

	_, err := p.Run(context.Background(), Request{Template: testTemplate()}, nil)
	assert.Error(t, err)
}

func TestRunRejectsInvalidTemplate(t *testing.T) {
	p := newRealPipeline(t)

	req := testRequest()
	req.Template = template.Template{}
	_, err := p.Run(context.Background(), req, nil)
	assert.Error(t, err)
}

func TestRunStampsDateOnce(t *testing.T) {
	store := memory.New()
	p := newRealPipeline(t, WithRecordStore(store))

	req := testRequest()
	req.Config.IncludeDate = true

	docs, err := p.Run(context.Background(), req, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	rec, err := store.FindByFingerprint(context.Background(), docs[0].Fingerprint)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.IssuedOn, "generation date is persisted for later recomputation")
}
