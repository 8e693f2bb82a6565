// Package domain defines the core business entities for the notas intake BFF.
// These models are independent of external services and represent the
// canonical data structures used throughout the workflow.
package domain

import (
	"strings"
	"time"
)

// ============================================================
// Nota Fiscal — draft being authored
// ============================================================

// NotaDraft is the in-memory state of the invoice being created or edited.
// It is owned exclusively by one intake session and is only mutated through
// the transition methods below; handlers and services never write fields
// directly.
type NotaDraft struct {
	// DraftID identifies the intake session, not the persisted invoice.
	DraftID string `json:"draft_id"`

	// NotaID is set when editing an already persisted invoice.
	NotaID *int64 `json:"nota_id,omitempty"`

	// Header fields.
	NumeroNota        string  `json:"numero_nota"`
	Serie             string  `json:"serie"`
	DataEmissao       string  `json:"data_emissao"` // "2006-01-02", no time component
	ValorTotal        float64 `json:"valor_total"`
	ChaveAcesso       string  `json:"chave_acesso"`
	InscricaoEstadual string  `json:"inscricao_estadual,omitempty"`

	// FornecedorID is nil until the supplier is resolved by import match,
	// manual selection or creation.
	FornecedorID *int64 `json:"fornecedor_id,omitempty"`

	// Fornecedor is the snapshot extracted from the XML. Display and
	// reconciliation only; it is never written back to the backend except
	// as pre-fill when creating a new supplier.
	Fornecedor FornecedorImportado `json:"fornecedor"`

	// FornecedorPendente marks that the last import found no matching
	// supplier and the creation flow is expected to run.
	FornecedorPendente bool `json:"fornecedor_pendente"`

	// Itens in document order. The list itself is only replaced wholesale
	// by an import or hydration; individual items only change via
	// ResolverItem.
	Itens []ItemNota `json:"itens"`

	CriadoEm     time.Time `json:"criado_em"`
	AtualizadoEm time.Time `json:"atualizado_em"`
}

// ItemNota is one invoice line. Descricao, Quantidade, UnidadeMedida and
// ValorUnitario are immutable after import; ProdutoID is the only field the
// binder may change.
type ItemNota struct {
	Descricao     string  `json:"descricao"`
	Quantidade    float64 `json:"quantidade"`
	UnidadeMedida string  `json:"unidade_medida"`
	ValorUnitario float64 `json:"valor_unitario"`
	Codigo        string  `json:"codigo,omitempty"`
	EAN           string  `json:"ean,omitempty"`

	// ProdutoID nil = pending, non-nil = resolved. No other state exists.
	ProdutoID *int64 `json:"produto_id,omitempty"`
}

// Resolvido reports whether the line item is bound to a product.
func (i *ItemNota) Resolvido() bool {
	return i.ProdutoID != nil
}

// FornecedorImportado is the supplier snapshot extracted from the fiscal XML,
// decoupled from any persisted Fornecedor until a match or creation occurs.
type FornecedorImportado struct {
	RazaoSocial       string `json:"razao_social,omitempty"`
	CNPJ              string `json:"cnpj,omitempty"`
	InscricaoEstadual string `json:"inscricao_estadual,omitempty"`
	Rua               string `json:"rua,omitempty"`
	Numero            string `json:"numero,omitempty"`
	Bairro            string `json:"bairro,omitempty"`
	Cidade            string `json:"cidade,omitempty"`
	UF                string `json:"uf,omitempty"`
	CEP               string `json:"cep,omitempty"`
	Telefone          string `json:"telefone,omitempty"`
	Email             string `json:"email,omitempty"`
}

// Vazio reports whether the snapshot carries no imported data.
func (f FornecedorImportado) Vazio() bool {
	return f == FornecedorImportado{}
}

// ============================================================
// Import result — what the backend returns for an uploaded XML
// ============================================================

// NotaImportada is the parsed header + supplier snapshot the backend extracts
// from the XML. Field names follow the backend payload.
type NotaImportada struct {
	NumeroNota        string  `json:"numero_nota"`
	Serie             string  `json:"serie"`
	DataEmissao       string  `json:"data_emissao"`
	ValorTotal        float64 `json:"valor_total"`
	ChaveAcesso       string  `json:"chave_acesso"`
	InscricaoEstadual string  `json:"inscricao_estadual"`

	RazaoSocialFornecedor string `json:"razao_social_fornecedor"`
	CNPJFornecedor        string `json:"cnpj_fornecedor"`
	RuaFornecedor         string `json:"rua_fornecedor"`
	NumeroFornecedor      string `json:"numero_fornecedor"`
	BairroFornecedor      string `json:"bairro_fornecedor"`
	CidadeFornecedor      string `json:"cidade_fornecedor"`
	UFFornecedor          string `json:"uf_fornecedor"`
	CEPFornecedor         string `json:"cep_fornecedor"`
	TelefoneFornecedor    string `json:"telefone_fornecedor"`
	EmailFornecedor       string `json:"email_fornecedor"`
}

// FornecedorCorrespondencia reports whether the XML supplier tax-id matched a
// registered supplier.
type FornecedorCorrespondencia struct {
	Existe bool   `json:"existe"`
	ID     *int64 `json:"id,omitempty"`
}

// ResultadoImportacao is the full response of the backend XML import.
type ResultadoImportacao struct {
	Nota       NotaImportada             `json:"nota"`
	Fornecedor FornecedorCorrespondencia `json:"fornecedor"`
	Itens      []ItemNota                `json:"itens"`
}

// Snapshot converts the flat import payload into the supplier snapshot.
func (r *ResultadoImportacao) Snapshot() FornecedorImportado {
	return FornecedorImportado{
		RazaoSocial:       r.Nota.RazaoSocialFornecedor,
		CNPJ:              r.Nota.CNPJFornecedor,
		InscricaoEstadual: r.Nota.InscricaoEstadual,
		Rua:               r.Nota.RuaFornecedor,
		Numero:            r.Nota.NumeroFornecedor,
		Bairro:            r.Nota.BairroFornecedor,
		Cidade:            r.Nota.CidadeFornecedor,
		UF:                r.Nota.UFFornecedor,
		CEP:               r.Nota.CEPFornecedor,
		Telefone:          r.Nota.TelefoneFornecedor,
		Email:             r.Nota.EmailFornecedor,
	}
}

// ============================================================
// Transitions — the only permitted mutations of a draft
// ============================================================

// AplicarImportacao replaces header, supplier snapshot and item list with the
// parsed result. Re-import is wholesale: resolutions made on the previous
// item list do not survive, since item identity is positional.
func (d *NotaDraft) AplicarImportacao(res *ResultadoImportacao) {
	d.NumeroNota = res.Nota.NumeroNota
	d.Serie = res.Nota.Serie
	d.DataEmissao = res.Nota.DataEmissao
	d.ValorTotal = res.Nota.ValorTotal
	d.ChaveAcesso = res.Nota.ChaveAcesso
	d.InscricaoEstadual = res.Nota.InscricaoEstadual
	d.Fornecedor = res.Snapshot()

	d.Itens = make([]ItemNota, len(res.Itens))
	copy(d.Itens, res.Itens)
	for i := range d.Itens {
		d.Itens[i].ProdutoID = nil
	}

	if res.Fornecedor.Existe && res.Fornecedor.ID != nil {
		id := *res.Fornecedor.ID
		d.FornecedorID = &id
		d.FornecedorPendente = false
	} else {
		d.FornecedorID = nil
		d.FornecedorPendente = true
	}
	d.AtualizadoEm = time.Now()
}

// DefinirFornecedor binds the draft to a persisted supplier and clears any
// pending creation flow.
func (d *NotaDraft) DefinirFornecedor(id int64) {
	d.FornecedorID = &id
	d.FornecedorPendente = false
	d.AtualizadoEm = time.Now()
}

// LimparFornecedor undoes the flagged-missing supplier state after the user
// abandons the creation flow: linkage and imported snapshot are both cleared,
// so the draft needs re-import or manual selection before it can be saved.
func (d *NotaDraft) LimparFornecedor() {
	d.FornecedorID = nil
	d.FornecedorPendente = false
	d.Fornecedor = FornecedorImportado{}
	d.AtualizadoEm = time.Now()
}

// ResolverItem binds the item at indice to a product. Resolution is
// monotonic: once a line is resolved, only a fresh import may reset it.
func (d *NotaDraft) ResolverItem(indice int, produtoID int64) error {
	if indice < 0 || indice >= len(d.Itens) {
		return &ErrValidation{Field: "indice", Message: "item inexistente na nota"}
	}
	if d.Itens[indice].Resolvido() {
		return &ErrValidation{Field: "produto_id", Message: "item já vinculado a um produto"}
	}
	if produtoID <= 0 {
		return &ErrValidation{Field: "produto_id", Message: "selecione um produto"}
	}
	d.Itens[indice].ProdutoID = &produtoID
	d.AtualizadoEm = time.Now()
	return nil
}

// PreencherCabecalho applies manual header edits. Only header fields change;
// supplier linkage and itens are untouched.
func (d *NotaDraft) PreencherCabecalho(c CabecalhoNota) {
	d.NumeroNota = c.NumeroNota
	d.Serie = c.Serie
	d.DataEmissao = c.DataEmissao
	d.ValorTotal = c.ValorTotal
	d.ChaveAcesso = c.ChaveAcesso
	d.InscricaoEstadual = c.InscricaoEstadual
	d.AtualizadoEm = time.Now()
}

// CabecalhoNota carries manual header edits.
type CabecalhoNota struct {
	NumeroNota        string  `json:"numero_nota"`
	Serie             string  `json:"serie"`
	DataEmissao       string  `json:"data_emissao"`
	ValorTotal        float64 `json:"valor_total"`
	ChaveAcesso       string  `json:"chave_acesso"`
	InscricaoEstadual string  `json:"inscricao_estadual"`
}

// TudoValido is the save gate: supplier resolved, at least one item, and
// every item bound to a product. The save action is disabled while false.
// Duplicate produto_id across itens is allowed.
func (d *NotaDraft) TudoValido() bool {
	if d.FornecedorID == nil || len(d.Itens) == 0 {
		return false
	}
	for i := range d.Itens {
		if !d.Itens[i].Resolvido() {
			return false
		}
	}
	return true
}

// ItensPendentes returns the indices of itens still awaiting resolution.
func (d *NotaDraft) ItensPendentes() []int {
	var pendentes []int
	for i := range d.Itens {
		if !d.Itens[i].Resolvido() {
			pendentes = append(pendentes, i)
		}
	}
	return pendentes
}

// Clone returns a deep copy of the draft. Stores hand out copies so callers
// never alias the stored state.
func (d *NotaDraft) Clone() *NotaDraft {
	c := *d
	if d.NotaID != nil {
		id := *d.NotaID
		c.NotaID = &id
	}
	if d.FornecedorID != nil {
		id := *d.FornecedorID
		c.FornecedorID = &id
	}
	c.Itens = make([]ItemNota, len(d.Itens))
	for i, it := range d.Itens {
		c.Itens[i] = it
		if it.ProdutoID != nil {
			id := *it.ProdutoID
			c.Itens[i].ProdutoID = &id
		}
	}
	return &c
}

// ============================================================
// Persisted nota — what the backend stores and returns
// ============================================================

// Nota is a persisted invoice as the backend returns it.
type Nota struct {
	ID                int64      `json:"id"`
	NumeroNota        string     `json:"numero_nota"`
	Serie             string     `json:"serie"`
	DataEmissao       string     `json:"data_emissao"`
	ValorTotal        float64    `json:"valor_total"`
	ChaveAcesso       string     `json:"chave_acesso,omitempty"`
	InscricaoEstadual string     `json:"inscricao_estadual,omitempty"`
	FornecedorID      int64      `json:"fornecedor_id"`
	Itens             []ItemNota `json:"itens,omitempty"`

	RazaoSocialFornecedor string `json:"razao_social_fornecedor,omitempty"`
	CNPJFornecedor        string `json:"cnpj_fornecedor,omitempty"`
	RuaFornecedor         string `json:"rua_fornecedor,omitempty"`
	NumeroFornecedor      string `json:"numero_fornecedor,omitempty"`
	BairroFornecedor      string `json:"bairro_fornecedor,omitempty"`
	CidadeFornecedor      string `json:"cidade_fornecedor,omitempty"`
	UFFornecedor          string `json:"uf_fornecedor,omitempty"`
	CEPFornecedor         string `json:"cep_fornecedor,omitempty"`
	TelefoneFornecedor    string `json:"telefone_fornecedor,omitempty"`
	EmailFornecedor       string `json:"email_fornecedor,omitempty"`
}

// NotaPayload is the full draft payload submitted on commit, header + supplier
// linkage + resolved itens in one call. There is no partial save.
type NotaPayload struct {
	NumeroNota        string     `json:"numero_nota"`
	Serie             string     `json:"serie"`
	DataEmissao       string     `json:"data_emissao"`
	ValorTotal        float64    `json:"valor_total"`
	ChaveAcesso       string     `json:"chave_acesso,omitempty"`
	InscricaoEstadual string     `json:"inscricao_estadual,omitempty"`
	FornecedorID      int64      `json:"fornecedor_id"`
	Itens             []ItemNota `json:"itens"`

	RazaoSocialFornecedor string `json:"razao_social_fornecedor,omitempty"`
	CNPJFornecedor        string `json:"cnpj_fornecedor,omitempty"`
}

// Payload builds the commit payload from a gated draft. Callers must check
// TudoValido first.
func (d *NotaDraft) Payload() *NotaPayload {
	p := &NotaPayload{
		NumeroNota:            d.NumeroNota,
		Serie:                 d.Serie,
		DataEmissao:           d.DataEmissao,
		ValorTotal:            d.ValorTotal,
		ChaveAcesso:           d.ChaveAcesso,
		InscricaoEstadual:     d.InscricaoEstadual,
		RazaoSocialFornecedor: d.Fornecedor.RazaoSocial,
		CNPJFornecedor:        d.Fornecedor.CNPJ,
	}
	if d.FornecedorID != nil {
		p.FornecedorID = *d.FornecedorID
	}
	p.Itens = make([]ItemNota, len(d.Itens))
	copy(p.Itens, d.Itens)
	return p
}

// HidratarDeNota loads a persisted invoice into the draft (edit mode).
func (d *NotaDraft) HidratarDeNota(n *Nota) {
	d.NotaID = &n.ID
	d.NumeroNota = n.NumeroNota
	d.Serie = n.Serie
	d.DataEmissao = trimDateTime(n.DataEmissao)
	d.ValorTotal = n.ValorTotal
	d.ChaveAcesso = n.ChaveAcesso
	d.InscricaoEstadual = n.InscricaoEstadual
	if n.FornecedorID > 0 {
		id := n.FornecedorID
		d.FornecedorID = &id
	}
	d.Fornecedor = FornecedorImportado{
		RazaoSocial:       n.RazaoSocialFornecedor,
		CNPJ:              n.CNPJFornecedor,
		InscricaoEstadual: n.InscricaoEstadual,
		Rua:               n.RuaFornecedor,
		Numero:            n.NumeroFornecedor,
		Bairro:            n.BairroFornecedor,
		Cidade:            n.CidadeFornecedor,
		UF:                n.UFFornecedor,
		CEP:               n.CEPFornecedor,
		Telefone:          n.TelefoneFornecedor,
		Email:             n.EmailFornecedor,
	}
	d.Itens = make([]ItemNota, len(n.Itens))
	copy(d.Itens, n.Itens)
	d.AtualizadoEm = time.Now()
}

// trimDateTime keeps only the calendar date of a backend timestamp
// ("2024-05-01T00:00:00Z" → "2024-05-01").
func trimDateTime(s string) string {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}
