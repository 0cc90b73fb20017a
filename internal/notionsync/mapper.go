package notionsync

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the transactions database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropUserID        = "User ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropType          = "Type"
	PropCategory      = "Category"
	PropCard          = "Card"
	PropFingerprint   = "Fingerprint"
)

// TransactionToNotionProperties converts a transaction to page properties.
// The fingerprint property lets a later sync skip unchanged pages.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: []notionapi.RichText{textValue(tx.Description)},
		},
		PropTransactionID: richText(tx.ID),
		PropUserID:        richText(tx.UserID),
		PropAmount:        notionapi.NumberProperty{Number: tx.Amount},
		PropType:          notionapi.SelectProperty{Select: notionapi.Option{Name: string(tx.Type)}},
		PropFingerprint:   richText(Fingerprint(tx)),
	}
	if tx.Date.IsValid() {
		props[PropDate] = dateProperty(tx.Date)
	}
	if tx.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Category}}
	}
	if tx.CardID != "" {
		props[PropCard] = richText(tx.CardID)
	}
	return props
}

// Fingerprint hashes the synced fields of tx.
func Fingerprint(tx domain.Transaction) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.2f|%s|%s|%s|%s",
		tx.ID, tx.Description, tx.Amount, tx.Type, tx.Category, tx.Date, tx.CardID)))
	return hex.EncodeToString(sum[:8])
}

func textValue(s string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}
}

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{RichText: []notionapi.RichText{textValue(s)}}
}

func dateProperty(d civil.Date) notionapi.DateProperty {
	start := notionapi.Date(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &start}}
}

// textOf reads a rich text or title property. Pages returned by the API
// carry pointer properties with PlainText set; pages built locally carry
// values with only the content set.
func textOf(page notionapi.Page, name string) string {
	var parts []notionapi.RichText
	switch p := page.Properties[name].(type) {
	case *notionapi.RichTextProperty:
		parts = p.RichText
	case notionapi.RichTextProperty:
		parts = p.RichText
	case *notionapi.TitleProperty:
		parts = p.Title
	case notionapi.TitleProperty:
		parts = p.Title
	}
	if len(parts) == 0 {
		return ""
	}
	if parts[0].PlainText != "" {
		return parts[0].PlainText
	}
	if parts[0].Text != nil {
		return parts[0].Text.Content
	}
	return ""
}

func extractTransactionID(page notionapi.Page) string {
	return textOf(page, PropTransactionID)
}
