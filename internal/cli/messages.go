package cli

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/prudhvinik1/kaucjaflow/internal/models"
)

// polish is the Polish catalog. Keys double as the English text.
var polish = []struct{ key, msg string }{
	{"Plastic", "PLASTIK"},
	{"Aluminum", "ALUMINIUM"},
	{"Glass", "SZKŁO"},
	{"Total", "Razem"},
	{"sent", "wysłane"},
	{"pending", "oczekuje"},
	{"online", "połączony"},
	{"offline", "brak połączenia"},
	{"Day: %s\n", "Dzień: %s\n"},
	{"Pending: %d\n", "Do wysłania: %d\n"},
	{"Recorded %s (#%d)\n", "Zapisano %s (#%d)\n"},
	{"Shop: %s\n", "Sklep: %s\n"},
	{"Device: %s\n", "Urządzenie: %s\n"},
	{"Events: %d\n", "Zdarzenia: %d\n"},
	{"Server: %s (%s)\n", "Serwer: %s (%s)\n"},
	{"Database: %s\n", "Baza danych: %s\n"},
	{"Cleared local events.\n", "Usunięto lokalne zdarzenia.\n"},
	{"Aborted.\n", "Przerwano.\n"},
	{"Error [%s]: %s\n", "Błąd [%s]: %s\n"},
	{"Login link sent to %s.\n", "Wysłano link logowania do %s.\n"},
	{"Login link for %s was written to the server log.\n", "Link logowania dla %s zapisano w logu serwera.\n"},
	{"Logged in as %s (shop %s).\n", "Zalogowano jako %s (sklep %s).\n"},
	{"Type YES to delete all local events, including unsent ones: ", "Wpisz TAK, aby usunąć wszystkie lokalne zdarzenia, także niewysłane: "},
	{"Synced: pushed %d (new %d, duplicates %d), downloaded %d, re-sent %d\n", "Zsynchronizowano: wysłano %d (nowe %d, duplikaty %d), pobrano %d, ponownie wysłano %d\n"},
	{"[%s] sync failed: %v\n", "[%s] synchronizacja nieudana: %v\n"},
}

func init() {
	for _, m := range polish {
		message.SetString(language.Polish, m.key, m.msg)
	}
}

func newPrinter(lang string) *message.Printer {
	if lang == "en" {
		return message.NewPrinter(language.English)
	}
	return message.NewPrinter(language.Polish)
}

// typeLabel returns the localized display name of an event type.
func typeLabel(p *message.Printer, t models.EventType) string {
	switch t {
	case models.EventPlastic:
		return p.Sprintf("Plastic")
	case models.EventAluminum:
		return p.Sprintf("Aluminum")
	case models.EventGlass:
		return p.Sprintf("Glass")
	}
	return string(t)
}
