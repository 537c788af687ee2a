package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criapa/DOE-PE/internal/catalog"
	"github.com/criapa/DOE-PE/internal/report"
)

const reportA = `[
    {
        "arquivo": "DOE_10-01-2025.pdf",
        "pagina": 1,
        "topico_detectado": "SECRETARIA DE ADMINISTRAÇÃO",
        "categoria": "CONCURSOS_SELECOES",
        "termo_encontrado": "concurso público",
        "impacto": "HIGH",
        "resumo_snippet": "...abertura de Concurso Público para analista...",
        "data_processamento": "2025-01-10"
    },
    {
        "arquivo": "DOE_10-01-2025.pdf",
        "pagina": 2,
        "topico_detectado": "SECRETARIA DE SAÚDE",
        "categoria": "SAUDE_BIOTEC",
        "termo_encontrado": "vacinação",
        "impacto": "MEDIUM",
        "resumo_snippet": "...campanha de vacinação no interior...",
        "data_processamento": "2025-01-10"
    }
]`

// reportB uses the Portuguese impact labels of older report files
const reportB = `[
    {
        "arquivo": "DOE_11-01-2025.pdf",
        "pagina": 3,
        "topico_detectado": "SECRETARIA DE ADMINISTRAÇÃO",
        "categoria": "CONCURSOS_SELECOES",
        "termo_encontrado": "nomeação",
        "impacto": "ALTO",
        "resumo_snippet": "...nomeação dos aprovados...",
        "data_processamento": "2025-01-11"
    },
    {
        "arquivo": "DOE_11-01-2025.pdf",
        "pagina": 4,
        "topico_detectado": "GABINETE DO GOVERNADOR",
        "categoria": "REGULACAO_LEIS",
        "termo_encontrado": "decreto nº",
        "impacto": "BAIXO",
        "resumo_snippet": "...Decreto nº 55.123 regulamenta...",
        "data_processamento": "2025-01-11"
    }
]`

func writeReports(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func loadedStore(t *testing.T) *Store {
	t.Helper()
	dir := writeReports(t, map[string]string{
		"relatorio_doe_20250110_0600.json": reportA,
		"relatorio_doe_20250111_0600.json": reportB,
	})
	res, err := LoadReports(dir)
	require.NoError(t, err)

	store, err := OpenStore(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Replace(context.Background(), res.Records))
	return store
}

func TestLoadReports(t *testing.T) {
	dir := writeReports(t, map[string]string{
		"relatorio_doe_20250110_0600.json": reportA,
		"relatorio_doe_20250111_0600.json": reportB,
		"broken.json":                      `{"not": "a list"`,
		"notes.txt":                        "ignored",
	})

	res, err := LoadReports(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Files)
	require.Len(t, res.Records, 4)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "broken.json", res.Errors[0].File)

	assert.Equal(t, "relatorio_doe_20250110_0600.json", res.Records[0].OriginFile)
	assert.Equal(t, "relatorio_doe_20250111_0600.json", res.Records[2].OriginFile)
	assert.Equal(t, catalog.ImpactHigh, res.Records[2].Impact, "legacy ALTO label")
	assert.Equal(t, catalog.ImpactLow, res.Records[3].Impact, "legacy BAIXO label")
}

func TestLoadReportsMissingDir(t *testing.T) {
	res, err := LoadReports(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Zero(t, res.Files)
	assert.Empty(t, res.Records)
}

func TestStoreQuery(t *testing.T) {
	store := loadedStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		pages  []int
	}{
		{"no filter", Filter{}, []int{1, 2, 3, 4}},
		{"high impact", Filter{Impacts: []catalog.Impact{catalog.ImpactHigh}}, []int{1, 3}},
		{"category", Filter{Categories: []string{"SAUDE_BIOTEC", "REGULACAO_LEIS"}}, []int{2, 4}},
		{"snippet search ignores case", Filter{Query: "CONCURSO"}, []int{1}},
		{"combined", Filter{Impacts: []catalog.Impact{catalog.ImpactHigh}, Query: "aprovados"}, []int{3}},
		{"limit", Filter{Limit: 2}, []int{1, 2}},
		{"no match", Filter{Query: "inexistente"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := store.Query(ctx, tt.filter)
			require.NoError(t, err)

			var pages []int
			for _, r := range recs {
				pages = append(pages, r.Page)
			}
			assert.Equal(t, tt.pages, pages)
		})
	}
}

func TestStoreQueryKeepsFields(t *testing.T) {
	store := loadedStore(t)

	recs, err := store.Query(context.Background(), Filter{Query: "vacinação"})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	r := recs[0]
	assert.Equal(t, "DOE_10-01-2025.pdf", r.SourceFile)
	assert.Equal(t, "SECRETARIA DE SAÚDE", r.DetectedTopic)
	assert.Equal(t, catalog.ImpactMedium, r.Impact)
	assert.Equal(t, "2025-01-10", r.ProcessedDate.String())
	assert.Equal(t, "relatorio_doe_20250110_0600.json", r.OriginFile)
}

func TestStoreKPIs(t *testing.T) {
	store := loadedStore(t)
	ctx := context.Background()

	k, err := store.KPIs(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, KPIs{Mentions: 4, Contests: 2, Gazettes: 2, HighImpact: 2}, k)

	k, err = store.KPIs(ctx, Filter{Categories: []string{"SAUDE_BIOTEC"}})
	require.NoError(t, err)
	assert.Equal(t, KPIs{Mentions: 1, Contests: 0, Gazettes: 1, HighImpact: 0}, k)
}

func TestStoreKPIsEmpty(t *testing.T) {
	store, err := OpenStore(context.Background())
	require.NoError(t, err)
	defer store.Close()

	k, err := store.KPIs(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, KPIs{}, k)
}

func TestStoreByCategory(t *testing.T) {
	store := loadedStore(t)

	counts, err := store.ByCategory(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{
		{Category: "CONCURSOS_SELECOES", Impact: catalog.ImpactHigh, Count: 2},
		{Category: "REGULACAO_LEIS", Impact: catalog.ImpactLow, Count: 1},
		{Category: "SAUDE_BIOTEC", Impact: catalog.ImpactMedium, Count: 1},
	}, counts)
}

func TestStoreTopTopics(t *testing.T) {
	store := loadedStore(t)

	topics, err := store.TopTopics(context.Background(), Filter{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []TopicCount{
		{Topic: "SECRETARIA DE ADMINISTRAÇÃO", Count: 2},
		{Topic: "GABINETE DO GOVERNADOR", Count: 1},
	}, topics)
}

func TestStoreReplace(t *testing.T) {
	store := loadedStore(t)
	ctx := context.Background()

	require.NoError(t, store.Replace(ctx, nil))
	recs, err := store.Query(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func newTestAPI(t *testing.T, dir string) (*Service, http.Handler) {
	t.Helper()
	svc, err := NewService(context.Background(), dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	_, err = svc.Reload(context.Background())
	require.NoError(t, err)
	return svc, NewRouter(svc, nil)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestAPIFindings(t *testing.T) {
	dir := writeReports(t, map[string]string{
		"relatorio_doe_20250110_0600.json": reportA,
		"relatorio_doe_20250111_0600.json": reportB,
	})
	_, h := newTestAPI(t, dir)

	rec := get(t, h, "/api/findings?impact=HIGH&q=nomea")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "nomeação", got[0]["termo_encontrado"])
	assert.Equal(t, "HIGH", got[0]["impacto"])
	assert.Equal(t, "relatorio_doe_20250111_0600.json", got[0]["arquivo_origem"])
}

func TestAPIFindingsEmptyIsArray(t *testing.T) {
	_, h := newTestAPI(t, t.TempDir())

	rec := get(t, h, "/api/findings")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestAPIInvalidImpact(t *testing.T) {
	_, h := newTestAPI(t, t.TempDir())

	for _, path := range []string{"/api/findings?impact=HUGE", "/api/kpis?impact=x", "/api/findings.csv?impact=x"} {
		rec := get(t, h, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "invalid impact", path)
	}
}

func TestAPIKPIsAndCharts(t *testing.T) {
	dir := writeReports(t, map[string]string{
		"relatorio_doe_20250110_0600.json": reportA,
		"relatorio_doe_20250111_0600.json": reportB,
	})
	_, h := newTestAPI(t, dir)

	var k KPIs
	rec := get(t, h, "/api/kpis")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &k))
	assert.Equal(t, KPIs{Mentions: 4, Contests: 2, Gazettes: 2, HighImpact: 2}, k)

	var cats []CategoryCount
	rec = get(t, h, "/api/categories?impact=MEDIUM,LOW")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	assert.Len(t, cats, 2)

	var topics []TopicCount
	rec = get(t, h, "/api/topics?n=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &topics))
	assert.Equal(t, []TopicCount{{Topic: "SECRETARIA DE ADMINISTRAÇÃO", Count: 2}}, topics)
}

func TestAPIOpportunities(t *testing.T) {
	dir := writeReports(t, map[string]string{"r.json": reportA})
	_, h := newTestAPI(t, dir)

	rec := get(t, h, "/api/opportunities?category=SAUDE_BIOTEC")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, catalog.CategoryContests, got[0].Category)
}

func TestAPIFindingsCSV(t *testing.T) {
	dir := writeReports(t, map[string]string{
		"relatorio_doe_20250110_0600.json": reportA,
	})
	_, h := newTestAPI(t, dir)

	rec := get(t, h, "/api/findings.csv?impact=HIGH")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, report.UTF8BOM), "csv must start with a BOM")

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(body, report.UTF8BOM)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "arquivo;pagina;topico_detectado;categoria;termo_encontrado;impacto;resumo_snippet;data_processamento;arquivo_origem", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ";relatorio_doe_20250110_0600.json"))
	assert.Contains(t, lines[1], ";HIGH;")
}

func TestAPIReload(t *testing.T) {
	dir := t.TempDir()
	svc, h := newTestAPI(t, dir)
	assert.Zero(t, svc.Size())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "relatorio.json"), []byte(reportB), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("nope"), 0o644))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reload", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Files   int         `json:"files"`
		Records int         `json:"records"`
		Errors  []LoadError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Files)
	assert.Equal(t, 2, body.Records)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "bad.json", body.Errors[0].File)
	assert.Equal(t, 2, svc.Size())

	health := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, health.Code)
	assert.Contains(t, health.Body.String(), `"records":2`)
}

func TestClampInt(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 10},
		{"abc", 10},
		{"-3", 10},
		{"5", 5},
		{"500", 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampInt(tt.raw, 10, 100), "clampInt(%q)", tt.raw)
	}
}
