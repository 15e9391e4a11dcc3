package valueset

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofhir/fhir/r4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	txclient "github.com/gofhir/txclient"
	"github.com/gofhir/txclient/internal/txtest"
	"github.com/gofhir/txclient/params"
	"github.com/gofhir/txclient/rest"
)

func ptr[T any](v T) *T { return &v }

func setup(t *testing.T) (*txtest.Server, *rest.Client) {
	t.Helper()
	srv := txtest.NewServer(t)
	require.NoError(t, srv.AddValueSet("abcd", txtest.ABCD("http://example.org/vs/abcd")))
	require.NoError(t, srv.AddValueSet("fhir-version", txtest.FHIRVersionValueSet()))

	client, err := rest.New(srv.URL())
	require.NoError(t, err)
	return srv, client
}

func versionCoding(code string) r4.Coding {
	return r4.Coding{System: ptr(txtest.FHIRVersionSystem), Code: ptr(code)}
}

func TestResource_Reference(t *testing.T) {
	assert.Equal(t, "ValueSet/abcd", New(nil, "abcd").Reference())
	assert.Equal(t, "http://example.org/vs|2.0", ByURL(nil, "http://example.org/vs", "2.0").Reference())
	assert.Equal(t, "http://example.org/vs", ByURL(nil, "http://example.org/vs", "").Reference())

	r := ByURL(nil, "http://example.org/vs", "2.0")
	assert.Empty(t, r.ID())
	assert.Equal(t, "http://example.org/vs", r.URL())
	assert.Equal(t, "2.0", r.Version())
}

func TestExpand_Instance(t *testing.T) {
	srv, client := setup(t)

	vs, err := New(client, "abcd").Expand(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, Count(vs))

	last, ok := srv.LastRequest()
	require.True(t, ok)
	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "/ValueSet/abcd/$expand", last.Path)
	assert.JSONEq(t, `{"resourceType":"Parameters"}`, string(last.Body))
}

func TestExpand_WithOptions(t *testing.T) {
	srv, client := setup(t)

	vs, err := New(client, "abcd").Expand(context.Background(), params.NewMap().Set("count", 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, codes(Flatten(ContainsOf(vs))))

	last, _ := srv.LastRequest()
	in, err := params.Unmarshal(last.Body)
	require.NoError(t, err)
	count, ok := in.Int("count")
	require.True(t, ok)
	assert.Equal(t, 2, count)
}

func TestExpand_TypeLevelSendsURLFirst(t *testing.T) {
	srv, client := setup(t)

	r := ByURL(client, txtest.FHIRVersionURL, "")
	vs, err := r.Expand(context.Background(), params.NewMap().Set("activeOnly", true))
	require.NoError(t, err)
	assert.Equal(t, 4, Count(vs))

	last, _ := srv.LastRequest()
	assert.Equal(t, "/ValueSet/$expand", last.Path)

	in, err := params.Unmarshal(last.Body)
	require.NoError(t, err)
	assert.Equal(t, []string{"url", "activeOnly"}, in.Keys())
	url, _ := in.String("url")
	assert.Equal(t, txtest.FHIRVersionURL, url)
}

func TestExpand_TypeLevelVersion(t *testing.T) {
	srv, client := setup(t)
	const url = "http://example.org/vs/versioned"
	require.NoError(t, srv.AddValueSetVersion("1.0", txtest.Expanded(url, txtest.Node("http://example.org/cs", "old", ""))))
	require.NoError(t, srv.AddValueSetVersion("2.0", txtest.Expanded(url, txtest.Node("http://example.org/cs", "new", ""))))

	vs, err := ByURL(client, url, "2.0").Expand(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, codes(Flatten(ContainsOf(vs))))

	last, _ := srv.LastRequest()
	in, err := params.Unmarshal(last.Body)
	require.NoError(t, err)
	assert.Equal(t, []string{"url", "valueSetVersion"}, in.Keys())
}

func TestExpand_TypeLevelCallerVersionWins(t *testing.T) {
	srv, client := setup(t)
	const url = "http://example.org/vs/versioned"
	require.NoError(t, srv.AddValueSetVersion("1.0", txtest.Expanded(url, txtest.Node("http://example.org/cs", "old", ""))))
	require.NoError(t, srv.AddValueSetVersion("2.0", txtest.Expanded(url, txtest.Node("http://example.org/cs", "new", ""))))

	p := params.NewMap().Set("count", 10).Set("valueSetVersion", "1.0")
	vs, err := ByURL(client, url, "2.0").Expand(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, codes(Flatten(ContainsOf(vs))))

	last, _ := srv.LastRequest()
	in, err := params.Unmarshal(last.Body)
	require.NoError(t, err)
	assert.Equal(t, []string{"url", "valueSetVersion", "count"}, in.Keys())
	version, _ := in.String("valueSetVersion")
	assert.Equal(t, "1.0", version)
}

func TestExpand_NotFound(t *testing.T) {
	_, client := setup(t)

	_, err := New(client, "missing").Expand(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, txclient.ErrOperationFailed))

	var opErr *txclient.OperationFailedError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, http.StatusNotFound, opErr.StatusCode)
	require.NotNil(t, opErr.Outcome)
	assert.True(t, opErr.Outcome.HasErrors())
	assert.Contains(t, opErr.Outcome.Issues[0].Diagnostics, "ValueSet/missing")
}

func TestExpand_UnsupportedOption(t *testing.T) {
	srv, client := setup(t)

	_, err := New(client, "abcd").Expand(context.Background(), params.NewMap().Set("bad", struct{}{}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, txclient.ErrUnsupportedValueType))
	assert.Equal(t, 0, srv.RequestCount())
}

func TestValidateCode_Coding(t *testing.T) {
	srv, client := setup(t)

	coding := versionCoding("4.0.1")
	m, err := New(client, "fhir-version").ValidateCode(context.Background(), ValidateCodeInput{Coding: &coding})
	require.NoError(t, err)

	result, ok := m.Bool("result")
	require.True(t, ok)
	assert.True(t, result)
	display, _ := m.String("display")
	assert.Equal(t, "4.0.1", display)

	last, _ := srv.LastRequest()
	assert.Equal(t, "/ValueSet/fhir-version/$validate-code", last.Path)
	in, err := params.Unmarshal(last.Body)
	require.NoError(t, err)
	sent, ok := in.Coding("coding")
	require.True(t, ok)
	assert.Equal(t, "4.0.1", *sent.Code)
}

func TestValidateCode_Extra(t *testing.T) {
	srv, client := setup(t)

	coding := versionCoding("4.3.0")
	in := ValidateCodeInput{
		Coding: &coding,
		Extra:  params.NewMap().Set("display", "4.3.0"),
	}
	_, err := New(client, "fhir-version").ValidateCode(context.Background(), in)
	require.NoError(t, err)

	last, _ := srv.LastRequest()
	sent, err := params.Unmarshal(last.Body)
	require.NoError(t, err)
	assert.Equal(t, []string{"coding", "display"}, sent.Keys())
}

func TestValidate_Typed(t *testing.T) {
	_, client := setup(t)
	r := New(client, "fhir-version")

	coding := versionCoding("4.0.1")
	res, err := r.Validate(context.Background(), ValidateCodeInput{Coding: &coding})
	require.NoError(t, err)
	assert.True(t, res.Result)
	assert.Equal(t, "4.0.1", res.Code)
	assert.Equal(t, txtest.FHIRVersionSystem, res.System)

	missing := versionCoding("1.0.2")
	res, err = r.Validate(context.Background(), ValidateCodeInput{Coding: &missing})
	require.NoError(t, err)
	assert.False(t, res.Result)
	assert.NotEmpty(t, res.Message)
}

func TestParseValidateCodeResult_MissingResult(t *testing.T) {
	_, err := ParseValidateCodeResult(params.NewMap().Set("message", "no result"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, txclient.ErrMalformedParameters))
}

func TestCodings_PreOrder(t *testing.T) {
	_, client := setup(t)

	var got []string
	for c, err := range New(client, "abcd").Codings(context.Background()) {
		require.NoError(t, err)
		got = append(got, deref(c.Code))
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, got)
}

func TestCodings_EarlyStop(t *testing.T) {
	_, client := setup(t)

	var got []string
	for c, err := range New(client, "abcd").Codings(context.Background()) {
		require.NoError(t, err)
		got = append(got, deref(c.Code))
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"A", "B"}, got)
}

func TestCodings_FreshExpandPerRange(t *testing.T) {
	srv, client := setup(t)
	seq := New(client, "abcd").Codings(context.Background())

	for range seq {
	}
	for range seq {
	}
	assert.Equal(t, 2, srv.RequestCount())
}

func TestCodings_Error(t *testing.T) {
	_, client := setup(t)

	var errs []error
	n := 0
	for _, err := range New(client, "missing").Codings(context.Background()) {
		n++
		if err != nil {
			errs = append(errs, err)
		}
	}
	assert.Equal(t, 1, n)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], txclient.ErrOperationFailed))
}

func TestContains(t *testing.T) {
	_, client := setup(t)
	r := New(client, "fhir-version")
	ctx := context.Background()

	tests := []struct {
		name string
		term any
		want bool
	}{
		{"coding", versionCoding("4.0.1"), true},
		{"coding pointer", ptr(versionCoding("5.0.0")), true},
		{"unknown coding", versionCoding("1.0.2"), false},
		{"concept", r4.CodeableConcept{Coding: []r4.Coding{versionCoding("4.3.0")}}, true},
		{"concept pointer", &r4.CodeableConcept{Coding: []r4.Coding{versionCoding("0.5.0")}}, false},
		{"term", CodingTerm(versionCoding("4.0.0")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Contains(ctx, tt.term)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContains_UnsupportedTerm(t *testing.T) {
	srv, client := setup(t)
	r := New(client, "fhir-version")

	for _, term := range []any{"4.0.1", 42, nil, (*r4.Coding)(nil), Term{}} {
		ok, err := r.Contains(context.Background(), term)
		require.Error(t, err)
		assert.False(t, ok)
		assert.True(t, errors.Is(err, txclient.ErrUnsupportedTermType))
	}

	var typeErr *txclient.UnsupportedTermTypeError
	_, err := r.Contains(context.Background(), "4.0.1")
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "string", typeErr.Type)

	assert.Equal(t, 0, srv.RequestCount())
}

func TestContains_AlwaysAsksServer(t *testing.T) {
	srv, client := setup(t)
	r := New(client, "fhir-version")

	for range 3 {
		ok, err := r.Contains(context.Background(), versionCoding("4.0.1"))
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 3, srv.RequestCount())
}

type stubExecutor struct {
	body []byte
	err  error
}

func (s stubExecutor) Execute(context.Context, string, string, []byte) ([]byte, error) {
	return s.body, s.err
}

func TestContains_MalformedResponse(t *testing.T) {
	r := New(stubExecutor{body: []byte(`{"resourceType":"Parameters","parameter":[{"name":"message","valueString":"?"}]}`)}, "x")

	_, err := r.Contains(context.Background(), versionCoding("4.0.1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, txclient.ErrMalformedParameters))
}

func TestContains_DuplicateResponseParameter(t *testing.T) {
	body := []byte(`{"resourceType":"Parameters","parameter":[` +
		`{"name":"result","valueBoolean":true},{"name":"result","valueBoolean":false}]}`)
	r := New(stubExecutor{body: body}, "x")

	_, err := r.Contains(context.Background(), versionCoding("4.0.1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, txclient.ErrDuplicateParameterName))
}

func TestTermOf(t *testing.T) {
	coding := versionCoding("4.0.1")

	term, err := TermOf(&coding)
	require.NoError(t, err)
	got, ok := term.Coding()
	require.True(t, ok)
	assert.Equal(t, "4.0.1", *got.Code)
	_, ok = term.CodeableConcept()
	assert.False(t, ok)

	term, err = TermOf(r4.CodeableConcept{Text: ptr("release")})
	require.NoError(t, err)
	cc, ok := term.CodeableConcept()
	require.True(t, ok)
	assert.Equal(t, "release", *cc.Text)
}

var _ Executor = (*rest.Client)(nil)
