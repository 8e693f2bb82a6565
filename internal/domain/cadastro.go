package domain

import "strings"

// ============================================================
// Fornecedor (supplier) — owned by the ERP backend
// ============================================================

// Fornecedor is a registered supplier.
type Fornecedor struct {
	ID                int64  `json:"id"`
	TipoPessoa        string `json:"tipo_pessoa"` // "J" jurídica, "F" física
	Nome              string `json:"nome"`
	RazaoSocial       string `json:"razao_social,omitempty"`
	NomeFantasia      string `json:"nome_fantasia,omitempty"`
	CPFCNPJ           string `json:"cpf_cnpj,omitempty"`
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

// NovoFornecedor is the creation payload, pre-fillable from the imported
// supplier snapshot.
type NovoFornecedor struct {
	TipoPessoa        string `json:"tipo_pessoa"`
	Nome              string `json:"nome"`
	RazaoSocial       string `json:"razao_social"`
	NomeFantasia      string `json:"nome_fantasia,omitempty"`
	CPFCNPJ           string `json:"cpf_cnpj"`
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

// DeSnapshot pre-fills a juridical-person creation payload from the imported
// supplier snapshot, the same way the creation form opens after an import.
func (f FornecedorImportado) DeSnapshot() NovoFornecedor {
	return NovoFornecedor{
		TipoPessoa:        "J",
		Nome:              f.RazaoSocial,
		RazaoSocial:       f.RazaoSocial,
		NomeFantasia:      f.RazaoSocial,
		CPFCNPJ:           f.CNPJ,
		InscricaoEstadual: f.InscricaoEstadual,
		Rua:               f.Rua,
		Numero:            f.Numero,
		Bairro:            f.Bairro,
		Cidade:            f.Cidade,
		UF:                strings.ToUpper(f.UF),
		CEP:               f.CEP,
		Telefone:          f.Telefone,
		Email:             f.Email,
	}
}

// Validar checks the required creation fields before any network call:
// a name, and the tax id matching the declared person type.
func (n *NovoFornecedor) Validar() error {
	nome := n.Nome
	if nome == "" {
		nome = n.RazaoSocial
	}
	if strings.TrimSpace(nome) == "" {
		return &ErrValidation{Field: "nome", Message: "obrigatório"}
	}

	digitos := SomenteDigitos(n.CPFCNPJ)
	switch n.TipoPessoa {
	case "J":
		if len(digitos) != 14 {
			return &ErrValidation{Field: "cpf_cnpj", Message: "CNPJ deve ter 14 dígitos"}
		}
	case "F":
		if len(digitos) != 11 {
			return &ErrValidation{Field: "cpf_cnpj", Message: "CPF deve ter 11 dígitos"}
		}
	default:
		return &ErrValidation{Field: "tipo_pessoa", Message: "deve ser 'J' ou 'F'"}
	}
	return nil
}

// ============================================================
// Produto — owned by the ERP backend
// ============================================================

// Produto is a registered product.
type Produto struct {
	ID            int64   `json:"id"`
	Nome          string  `json:"nome"`
	Codigo        string  `json:"codigo,omitempty"`
	EAN           string  `json:"ean,omitempty"`
	Unidade       string  `json:"unidade,omitempty"`
	GrupoID       *int64  `json:"grupo_id,omitempty"`
	FornecedorID  *int64  `json:"fornecedor_id,omitempty"`
	ValorUnitario float64 `json:"valor_unitario,omitempty"`
	Status        string  `json:"status,omitempty"` // "ativo" / "inativo"
}

// NovoProduto is the creation payload, pre-fillable from an invoice line.
type NovoProduto struct {
	Nome          string  `json:"nome"`
	Codigo        string  `json:"codigo,omitempty"`
	EAN           string  `json:"ean,omitempty"`
	Unidade       string  `json:"unidade,omitempty"`
	GrupoID       *int64  `json:"grupo_id,omitempty"`
	FornecedorID  *int64  `json:"fornecedor_id,omitempty"`
	ValorUnitario float64 `json:"valor_unitario,omitempty"`
}

// Validar requires at minimum a non-empty product name.
func (n *NovoProduto) Validar() error {
	if strings.TrimSpace(n.Nome) == "" {
		return &ErrValidation{Field: "nome", Message: "obrigatório"}
	}
	return nil
}

// ============================================================
// Grupo — product category lookup dimension
// ============================================================

// Grupo is a product group.
type Grupo struct {
	ID        int64  `json:"id"`
	Nome      string `json:"nome"`
	Descricao string `json:"descricao,omitempty"`
}

// NovoGrupo is the inline group creation payload.
type NovoGrupo struct {
	Nome      string `json:"nome"`
	Descricao string `json:"descricao,omitempty"`
}

// Validar requires a non-empty group name.
func (n *NovoGrupo) Validar() error {
	if strings.TrimSpace(n.Nome) == "" {
		return &ErrValidation{Field: "nome", Message: "obrigatório"}
	}
	return nil
}

// ============================================================
// Helpers
// ============================================================

// SomenteDigitos strips everything but ASCII digits from s.
func SomenteDigitos(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// FormatarDocumento renders a CNPJ or CPF in its canonical display form.
// Unknown lengths are returned untouched.
func FormatarDocumento(valor string) string {
	d := SomenteDigitos(valor)
	switch len(d) {
	case 14:
		return d[:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
	case 11:
		return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
	}
	return valor
}
