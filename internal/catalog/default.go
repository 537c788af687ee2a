package catalog

// Category names of the default gazette catalog
const (
	CategoryContests   = "CONCURSOS_SELECOES"
	CategoryHealth     = "SAUDE_BIOTEC"
	CategoryEducation  = "EDUCACAO_PESQUISA"
	CategoryRegulation = "REGULACAO_LEIS"
)

// Default returns the catalog used to monitor the Pernambuco state gazette
func Default() *Catalog {
	return MustNew(
		Category{
			Name: CategoryContests,
			Terms: []string{
				"concurso público", "processo seletivo", "nomeação",
				"homologação", "edital de abertura", "convocação",
			},
			Impact: ImpactHigh,
		},
		Category{
			Name: CategoryHealth,
			Terms: []string{
				"secretaria de saúde", "biotecnologia", "medicamentos", "insumos",
				"laboratório", "vacinação", "epidemiológica",
			},
			Impact: ImpactMedium,
		},
		Category{
			Name: CategoryEducation,
			Terms: []string{
				"fapesq", "bolsa de pesquisa", "mestrado", "doutorado",
				"universidade de pernambuco", "educação básica",
			},
			Impact: ImpactMedium,
		},
		Category{
			Name:   CategoryRegulation,
			Terms:  []string{"decreto nº", "lei nº", "portaria nº", "resolução"},
			Impact: ImpactLow,
		},
	)
}
