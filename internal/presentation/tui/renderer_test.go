package tui_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/aretw0/funil/internal/presentation/tui"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown(t *testing.T) {
	assert.Equal(t, "Você tem **R$80,00**  \nok", tui.Markdown("Você tem *R$80,00*\nok"))
	assert.Equal(t, "2 * 3", tui.Markdown("2 * 3"))
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := tui.NewConsole(&buf, true)
	ctx := context.Background()

	require.NoError(t, c.Send(ctx, domain.Recipient{}, domain.Buttons("menu_inicial", "Escolha uma opção", "CONSIGNADO CLT", "ANTECIPAR FGTS")))
	require.NoError(t, c.Send(ctx, domain.Recipient{}, domain.OutboundMessage{
		Kind:  domain.MessageMedia,
		Media: &domain.Media{Name: "autorizar.jpg"},
	}))
	require.NoError(t, c.TransferToAgent(ctx, "c-1"))

	out := buf.String()
	assert.Contains(t, out, "Escolha uma opção")
	assert.Contains(t, out, "[1] CONSIGNADO CLT")
	assert.Contains(t, out, "[2] ANTECIPAR FGTS")
	assert.Contains(t, out, "[imagem: autorizar.jpg]")
	assert.Contains(t, out, "transferida")

	assert.Equal(t, "ANTECIPAR FGTS", c.Choice(" 2 "))
	assert.Equal(t, "3", c.Choice("3"))
	assert.Equal(t, "SIM", c.Choice("SIM"))

	require.NoError(t, c.Send(ctx, domain.Recipient{}, domain.Text("Qual o seu CPF?")))
	assert.Equal(t, "1", c.Choice("1"), "plain text clears the choices")
}
