// Package conversation interprets text commands against the payer's latest
// pending expense and formats every outbound reply.
package conversation

import (
	"fmt"
	"strings"

	"github.com/oliveiraaldo/finsplit/internal/expense"
)

const dateLayout = "02/01/2006"

// SignupPrompt is sent to unknown senders.
func SignupPrompt(signupURL string) string {
	return "👋 Olá! Ainda não encontramos seu cadastro.\n" +
		"Crie sua conta em " + signupURL + " e vincule este número para registrar despesas por aqui."
}

// MediaApology is sent when the receipt image could not be downloaded.
func MediaApology() string {
	return "😕 Não conseguimos baixar a imagem do comprovante. Pode enviar a foto novamente?"
}

// ExtractionApology is sent when extraction failed even after the fallback.
func ExtractionApology() string {
	return "😕 Não conseguimos ler este comprovante. Tente uma foto com mais luz e o valor total visível."
}

// ValidationReply lists the fields the extraction is missing.
func ValidationReply(missing []string) string {
	return "🧐 Faltaram alguns dados no comprovante: " + strings.Join(missing, ", ") + ".\n" +
		"Envie uma foto mais nítida ou responda no formato campo: valor (ex.: valor: 45,50)."
}

// PersistenceApology is the generic terminal failure reply.
func PersistenceApology() string {
	return "😔 Tivemos um problema ao salvar sua despesa. Tente novamente em alguns minutos."
}

// PendingCreated confirms a new pending expense and asks for confirmation.
// The credits line is omitted when the balance could not be read.
func PendingCreated(e expense.Expense, balance int, balanceKnown bool) string {
	return fmt.Sprintf(
		"🧾 Despesa identificada!\n"+
			"📌 %s\n"+
			"💰 R$ %s\n"+
			"📅 %s\n\n"+
			"Responda *sim* para confirmar ou *não* para descartar.",
		e.Description, formatAmount(e), e.OccurredOn.Format(dateLayout),
	) + creditsLine(balance, balanceKnown)
}

// DuplicateWarning is the variant used when an identical expense already
// exists. The pending expense was still created; nothing is auto-resolved.
func DuplicateWarning(e expense.Expense, balance int, balanceKnown bool) string {
	return fmt.Sprintf(
		"⚠️ Atenção: você já tem uma despesa igual registrada.\n"+
			"📌 %s\n"+
			"💰 R$ %s\n"+
			"📅 %s\n\n"+
			"Criamos mesmo assim como pendente. Responda *sim* para confirmar ou *não* para descartar.",
		e.Description, formatAmount(e), e.OccurredOn.Format(dateLayout),
	) + creditsLine(balance, balanceKnown)
}

func creditsLine(balance int, known bool) string {
	if !known {
		return ""
	}
	return fmt.Sprintf("\n💳 Créditos restantes: %d", balance)
}

// Confirmed acknowledges a confirmation with a dashboard deep link.
func Confirmed(e expense.Expense, link string) string {
	return fmt.Sprintf(
		"✅ Despesa confirmada!\n"+
			"📌 %s — R$ %s\n"+
			"🔗 Veja os detalhes: %s",
		e.Description, formatAmount(e), link,
	)
}

// Rejected acknowledges a rejection.
func Rejected(e expense.Expense) string {
	return fmt.Sprintf("🗑️ Despesa descartada: %s — R$ %s.", e.Description, formatAmount(e))
}

// NothingPending answers confirmation tokens when no expense awaits one.
func NothingPending() string {
	return "🤔 Não há nenhuma despesa aguardando confirmação. Envie a foto de um comprovante para começar."
}

// Help is the fixed help text; it never mutates state.
func Help() string {
	return "ℹ️ Como usar:\n" +
		"📷 Envie a foto de um comprovante para registrar uma despesa.\n" +
		"✅ Responda *sim* para confirmar ou *não* para descartar a última despesa pendente.\n" +
		"📋 Digite *menu* para ver as opções ou *link* para abrir o painel."
}

// Menu lists the available commands.
func Menu(dashboardURL string) string {
	return "📋 Menu:\n" +
		"📷 Foto do comprovante — registrar despesa\n" +
		"✅ sim — confirmar pendente\n" +
		"❌ não — descartar pendente\n" +
		"🔗 " + dashboardURL
}

// DashboardLink points the sender at the web dashboard.
func DashboardLink(dashboardURL string) string {
	return "🔗 Acesse seu painel: " + dashboardURL
}

// ChannelBlocked is only sent when the enforcement toggle is on.
func ChannelBlocked() string {
	return "🚫 O canal de mensagens está desativado para sua conta. Fale com o administrador do seu plano."
}

// CreditsExhausted is only sent when the enforcement toggle is on.
func CreditsExhausted() string {
	return "🚫 Seus créditos acabaram. Faça uma recarga no painel para continuar registrando despesas."
}

func formatAmount(e expense.Expense) string {
	return strings.ReplaceAll(e.Amount.StringFixed(2), ".", ",")
}
