package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
)

func TestImportar_FornecedorNaoEncontradoAbreCadastro(t *testing.T) {
	notas := newMockNotaStore()
	notas.importResult = resultadoImportacao(false, 1)
	svc := newTestService(notas, newMockCadastroStore())

	estado, _ := svc.AbrirDraft(context.Background(), nil)
	out := importar(t, svc, estado.Draft.DraftID)

	if !out.AbrirCadastroFornecedor {
		t.Fatal("unmatched supplier must open the registration form")
	}
	if out.Estado.Draft.FornecedorID != nil {
		t.Error("no supplier may be linked on a miss")
	}
	if !out.Estado.Draft.FornecedorPendente {
		t.Error("expected pending supplier flag")
	}
	if out.Estado.TudoValido {
		t.Error("draft with pending supplier must not pass the gate")
	}
}

func TestPreencherNovoFornecedor_UsaSnapshotImportado(t *testing.T) {
	notas := newMockNotaStore()
	notas.importResult = resultadoImportacao(false, 1)
	notas.importResult.Nota.UFFornecedor = "sp"
	notas.importResult.Nota.CidadeFornecedor = "Campinas"
	svc := newTestService(notas, newMockCadastroStore())

	estado, _ := svc.AbrirDraft(context.Background(), nil)
	importar(t, svc, estado.Draft.DraftID)

	novo, err := svc.PreencherNovoFornecedor(context.Background(), estado.Draft.DraftID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if novo.TipoPessoa != "J" {
		t.Errorf("import pre-fill must default to pessoa jurídica, got %q", novo.TipoPessoa)
	}
	if novo.RazaoSocial != "Distribuidora Alfa LTDA" || novo.CPFCNPJ != "12345678000190" {
		t.Errorf("snapshot not carried into the form: %+v", novo)
	}
	if novo.UF != "SP" {
		t.Errorf("UF should be upper-cased, got %q", novo.UF)
	}
	if novo.Cidade != "Campinas" {
		t.Errorf("expected cidade Campinas, got %q", novo.Cidade)
	}
}

func TestCriarFornecedor_VinculaDraftEInvalidaCache(t *testing.T) {
	notas := newMockNotaStore()
	notas.importResult = resultadoImportacao(false, 1)
	cadastros := newMockCadastroStore()
	svc := newTestService(notas, cadastros)

	estado, _ := svc.AbrirDraft(context.Background(), nil)
	draftID := estado.Draft.DraftID
	importar(t, svc, draftID)

	// warm the candidate cache
	if _, err := svc.ListarFornecedores(context.Background(), ""); err != nil {
		t.Fatalf("listar: %v", err)
	}
	antes := cadastros.listagens

	novo, _ := svc.PreencherNovoFornecedor(context.Background(), draftID)
	atual, err := svc.CriarFornecedor(context.Background(), draftID, novo)
	if err != nil {
		t.Fatalf("criar fornecedor: %v", err)
	}
	if atual.Draft.FornecedorID == nil {
		t.Fatal("created supplier must be linked to the draft")
	}
	if atual.Draft.FornecedorPendente {
		t.Error("pending flag must clear after creation")
	}

	// next listing refetches and includes the new supplier
	lista, err := svc.ListarFornecedores(context.Background(), "")
	if err != nil {
		t.Fatalf("listar: %v", err)
	}
	if cadastros.listagens != antes+1 {
		t.Error("creation must invalidate the cached candidate list")
	}
	achou := false
	for _, f := range lista {
		if f.ID == *atual.Draft.FornecedorID {
			achou = true
		}
	}
	if !achou {
		t.Error("new supplier missing from refreshed list")
	}
}

func TestCriarFornecedor_ValidacaoLocal(t *testing.T) {
	notas := newMockNotaStore()
	notas.importResult = resultadoImportacao(false, 1)
	cadastros := newMockCadastroStore()
	svc := newTestService(notas, cadastros)

	estado, _ := svc.AbrirDraft(context.Background(), nil)
	importar(t, svc, estado.Draft.DraftID)

	casos := []struct {
		nome string
		novo domain.NovoFornecedor
	}{
		{"sem nome", domain.NovoFornecedor{TipoPessoa: "J", CPFCNPJ: "12345678000190"}},
		{"cnpj curto", domain.NovoFornecedor{TipoPessoa: "J", Nome: "Alfa", CPFCNPJ: "123"}},
		{"cpf em pessoa jurídica", domain.NovoFornecedor{TipoPessoa: "J", Nome: "Alfa", CPFCNPJ: "12345678901"}},
		{"tipo inválido", domain.NovoFornecedor{TipoPessoa: "X", Nome: "Alfa", CPFCNPJ: "12345678000190"}},
	}
	for _, c := range casos {
		t.Run(c.nome, func(t *testing.T) {
			_, err := svc.CriarFornecedor(context.Background(), estado.Draft.DraftID, &c.novo)
			var val *domain.ErrValidation
			if !errors.As(err, &val) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
	if len(cadastros.fornecedores) != 0 {
		t.Error("validation failures must not reach the backend")
	}
}

func TestCancelarCadastroFornecedor(t *testing.T) {
	notas := newMockNotaStore()
	notas.importResult = resultadoImportacao(false, 1)
	svc := newTestService(notas, newMockCadastroStore())

	estado, _ := svc.AbrirDraft(context.Background(), nil)
	draftID := estado.Draft.DraftID
	importar(t, svc, draftID)

	atual, err := svc.CancelarCadastroFornecedor(context.Background(), draftID)
	if err != nil {
		t.Fatalf("cancelar: %v", err)
	}
	if atual.Draft.FornecedorPendente {
		t.Error("pending flag must clear on cancel")
	}
	if atual.Draft.FornecedorID != nil {
		t.Error("cancel must not leave a supplier linked")
	}
	if !atual.Draft.Fornecedor.Vazio() {
		t.Error("imported snapshot must be discarded on cancel")
	}
	if len(atual.Draft.Itens) != 1 {
		t.Error("itens must survive the cancel")
	}
}

func TestSelecionarFornecedor(t *testing.T) {
	notas := newMockNotaStore()
	notas.importResult = resultadoImportacao(false, 1)
	cadastros := newMockCadastroStore()
	cadastros.fornecedores = []domain.Fornecedor{{ID: 31, Nome: "Beta Comercial"}}
	svc := newTestService(notas, cadastros)

	estado, _ := svc.AbrirDraft(context.Background(), nil)
	draftID := estado.Draft.DraftID
	importar(t, svc, draftID)

	atual, err := svc.SelecionarFornecedor(context.Background(), draftID, 31)
	if err != nil {
		t.Fatalf("selecionar: %v", err)
	}
	if atual.Draft.FornecedorID == nil || *atual.Draft.FornecedorID != 31 {
		t.Fatal("expected fornecedor 31 linked")
	}
	if atual.Draft.FornecedorPendente {
		t.Error("manual selection must clear the pending flag")
	}

	_, err = svc.SelecionarFornecedor(context.Background(), draftID, 999)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound for unknown supplier, got %v", err)
	}
}

func TestListarFornecedores_Filtro(t *testing.T) {
	cadastros := newMockCadastroStore()
	cadastros.fornecedores = []domain.Fornecedor{
		{ID: 1, Nome: "Distribuidora Alfa"},
		{ID: 2, Nome: "Comercial Beta"},
		{ID: 12, Nome: "Gama Atacado"},
	}
	svc := newTestService(newMockNotaStore(), cadastros)

	casos := []struct {
		filtro string
		ids    []int64
	}{
		{"", []int64{1, 2, 12}},
		{"ALFA", []int64{1}},
		{"beta", []int64{2}},
		{"2", []int64{2, 12}},
		{"nada disso", nil},
	}
	for _, c := range casos {
		lista, err := svc.ListarFornecedores(context.Background(), c.filtro)
		if err != nil {
			t.Fatalf("listar(%q): %v", c.filtro, err)
		}
		if len(lista) != len(c.ids) {
			t.Errorf("filtro %q: expected %d results, got %d", c.filtro, len(c.ids), len(lista))
			continue
		}
		for i, id := range c.ids {
			if lista[i].ID != id {
				t.Errorf("filtro %q: expected id %d at position %d, got %d", c.filtro, id, i, lista[i].ID)
			}
		}
	}

	if cadastros.listagens != 1 {
		t.Errorf("filtering must run on the cached list, backend called %d times", cadastros.listagens)
	}
}

func TestImportarXML_FalhaBackend(t *testing.T) {
	notas := newMockNotaStore()
	notas.importErr = errors.New("422 unprocessable")
	svc := newTestService(notas, newMockCadastroStore())

	estado, _ := svc.AbrirDraft(context.Background(), nil)
	_, err := svc.ImportarXML(context.Background(), estado.Draft.DraftID, "nota.xml", nil)
	var imp *domain.ErrImportacao
	if !errors.As(err, &imp) {
		t.Fatalf("expected ErrImportacao, got %v", err)
	}

	// draft untouched by the failed import
	atual, err := svc.BuscarDraft(context.Background(), estado.Draft.DraftID)
	if err != nil {
		t.Fatalf("buscar: %v", err)
	}
	if len(atual.Draft.Itens) != 0 || atual.Draft.NumeroNota != "" {
		t.Error("failed import must leave the draft unchanged")
	}
}
