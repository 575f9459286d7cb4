package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/model"
)

// ImportReport summarises one vCard import.
type ImportReport struct {
	Processed int              `json:"processed"`
	Imported  int              `json:"imported"`
	Skipped   int              `json:"skipped"`
	Birthdays []model.Birthday `json:"birthdays"`
}

// Importer turns vCard streams into new birthdays.
type Importer struct {
	Clock   Clock        // Interface for time mocking.
	Fetcher VCardFetcher // Interface for network abstraction.
}

// FromURL downloads and parses a remote address book.
func (i *Importer) FromURL(ctx context.Context, src RemoteSource) (ImportReport, error) {
	if i.Fetcher == nil {
		return ImportReport{}, errors.New(config.ErrFetcherMissing)
	}
	rc, err := i.Fetcher.Fetch(ctx, src)
	if err != nil {
		return ImportReport{}, err
	}
	// Best effort close. Errors in Close() for read-only streams are rarely actionable here.
	defer func() { _ = rc.Close() }()

	return i.FromReader(ctx, rc)
}

// FromReader parses every card of r. Cards without a usable birthday are
// counted as skipped; a card whose BDAY has no year is skipped because the
// stored model needs a birth year. Imported birthdays get a fresh ID, the
// relationship named by CATEGORIES when it is a known one (Other otherwise),
// and the default reminder settings.
func (i *Importer) FromReader(ctx context.Context, r io.Reader) (ImportReport, error) {
	log := slog.With(config.LogKeyComponent, config.CompEngine)
	now := i.Clock.Now()

	decoder := vcard.NewDecoder(r)
	report := ImportReport{Birthdays: []model.Birthday{}}

	for {
		if err := ctx.Err(); err != nil {
			return ImportReport{}, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, ErrTooLarge) {
			return ImportReport{}, err
		}
		if err != nil {
			// A broken stream cannot be resynchronised; keep what was read so far.
			if report.Processed == 0 {
				return ImportReport{}, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
			}
			log.Warn(config.MsgSkippedCard, config.LogKeyError, err)
			break
		}

		report.Processed++
		b, ok := cardToBirthday(log, card)
		if !ok {
			report.Skipped++
			continue
		}
		b.ID = model.NewID(now)
		report.Birthdays = append(report.Birthdays, b)
		report.Imported++
	}

	log.Info(config.MsgImportDone,
		config.LogKeyTotal, report.Processed,
		config.LogKeyImported, report.Imported,
		config.LogKeySkipped, report.Skipped)
	return report, nil
}

func cardToBirthday(log *slog.Logger, card vcard.Card) (model.Birthday, bool) {
	bday := card.Get(config.VCardBDAY)
	if bday == nil || bday.Value == "" {
		return model.Birthday{}, false
	}

	date, err := model.ParseDate(bday.Value)
	if err != nil {
		if _, yearless := model.ParseYearlessDate(bday.Value); yearless == nil {
			log.Debug(config.MsgSkippedNoYear, config.LogKeyValue, bday.Value)
		} else {
			log.Debug(config.MsgSkippedDate, config.LogKeyValue, bday.Value)
		}
		return model.Birthday{}, false
	}

	// Name Strategy: FN (Formatted) > N (Structured) > Fallback
	name := config.FallbackName
	if fn := card.Get(config.VCardFN); fn != nil && strings.TrimSpace(fn.Value) != "" {
		name = fn.Value
	} else if n := card.Name(); n != nil {
		if joined := strings.TrimSpace(n.GivenName + " " + n.FamilyName); joined != "" {
			name = joined
		}
	}

	b := model.Birthday{
		Name:         name,
		Date:         date,
		Relationship: model.RelationshipOther,
		Notes:        card.Value(config.VCardNote),
	}
	for _, c := range card.Categories() {
		if r := model.Relationship(c); r.Valid() {
			b.Relationship = r
			break
		}
	}
	return b, true
}

// ExportVCards writes the collection as vCard 4.0 cards.
func ExportVCards(w io.Writer, birthdays []model.Birthday) error {
	enc := vcard.NewEncoder(w)
	for _, b := range birthdays {
		card := make(vcard.Card)
		card.SetValue(config.VCardVersion, config.VCardVersion4)
		card.SetValue(config.VCardUID, b.ID)
		card.SetValue(config.VCardFN, b.Name)
		card.SetValue(config.VCardBDAY, b.Date.Format(config.DateFormatFullBasic))
		card.SetCategories([]string{string(b.Relationship)})
		if b.Notes != "" {
			card.SetValue(config.VCardNote, b.Notes)
		}

		if err := enc.Encode(card); err != nil {
			return fmt.Errorf("%s: %w", config.ErrVCardEncode, err)
		}
	}
	return nil
}
