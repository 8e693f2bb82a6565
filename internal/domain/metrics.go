package domain

// IntakeMetrics is the aggregated view served by GET /v1/metrics/intake.
type IntakeMetrics struct {
	ImportacoesOK      int64   `json:"importacoes_ok"`
	ImportacoesErro    int64   `json:"importacoes_erro"`
	TaxaErroImportacao float64 `json:"taxa_erro_importacao"`
	NotasSalvas        int64   `json:"notas_salvas"`
	NotasComFalha      int64   `json:"notas_com_falha"`
	ItensViaCadastro   int64   `json:"itens_via_cadastro"`
	ItensViaVinculo    int64   `json:"itens_via_vinculo"`
	CacheHitRate       float64 `json:"cache_hit_rate"`
	Period             string  `json:"period"`
}
