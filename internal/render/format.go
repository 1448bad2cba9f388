package render

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ukydev/oilchange-tracker/internal/models"
)

// Locale is the language every page is rendered in.
var Locale = language.BrazilianPortuguese

var printer = message.NewPrinter(Locale)

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// FormatDate renders d as "02 de janeiro de 2025".
func FormatDate(d models.Date) string {
	if d.IsZero() {
		return "—"
	}
	return fmt.Sprintf("%02d de %s de %d", d.Day(), monthNames[d.Month()-1], d.Year())
}

// FormatShortDate renders d as "02/01/2025".
func FormatShortDate(d models.Date) string {
	if d.IsZero() {
		return "—"
	}
	return fmt.Sprintf("%02d/%02d/%d", d.Day(), int(d.Month()), d.Year())
}

// FormatKm renders an odometer reading with thousands grouping: "12.345 km".
func FormatKm(km int) string {
	return printer.Sprintf("%d km", km)
}

// FormatMoney renders a value in reais: "R$ 1.234,50".
func FormatMoney(v float64) string {
	return printer.Sprintf("R$ %.2f", v)
}

// DaysPhrase describes how far away a due date is.
func DaysPhrase(days int) string {
	switch {
	case days == 0:
		return "⚠️ É HOJE!"
	case days == 1:
		return "⚠️ Amanhã!"
	case days > 1:
		return fmt.Sprintf("Em %d dias", days)
	case days == -1:
		return "Vencido há 1 dia"
	default:
		return fmt.Sprintf("Vencido há %d dias", -days)
	}
}

// PeriodPhrase renders a warranty length: "1 dia", "90 dias".
func PeriodPhrase(days int) string {
	if days == 1 {
		return "1 dia"
	}
	return fmt.Sprintf("%d dias", days)
}

// MaintenanceIcon returns the status marker shown next to a due date.
func MaintenanceIcon(s models.MaintenanceStatus) string {
	switch s {
	case models.MaintenanceDanger:
		return "❌"
	case models.MaintenanceCritical:
		return "🔴"
	case models.MaintenanceWarning:
		return "🟡"
	default:
		return "🟢"
	}
}

// WarrantyLabel returns the icon and label of a warranty tier.
func WarrantyLabel(s models.WarrantyStatus) (icon, label string) {
	switch s {
	case models.WarrantyExpired:
		return "❌", "Garantia Expirada"
	case models.WarrantyCritical:
		return "🔴", "Vencimento Próximo"
	case models.WarrantyWarning:
		return "🟡", "Vencimento em Breve"
	default:
		return "🟢", "Garantia Ativa"
	}
}
