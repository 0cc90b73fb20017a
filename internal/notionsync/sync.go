// Package notionsync mirrors a user's transactions into a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/logger"
	"github.com/jomei/notionapi"
)

// pageSize is the largest page Notion returns per query.
const pageSize = 100

// Result counts the page operations of one sync. In a dry run the counts
// are what would have happened.
type Result struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// SyncTransactions makes the user's pages in databaseID match txs. Pages
// whose transaction no longer exists, or that duplicate another page, are
// archived. Changed transactions are updated and new ones created. A
// failed page operation is logged and counted; only a failed query aborts
// the sync.
func SyncTransactions(ctx context.Context, notion NotionService, databaseID, userID string, txs []domain.Transaction, dryRun bool) (Result, error) {
	var res Result
	if userID == "" {
		return res, fmt.Errorf("SyncTransactions: user id is required")
	}
	log := logger.FromContext(ctx).With().
		Str("user_id", userID).
		Bool("dry_run", dryRun).
		Logger()

	pages, err := queryUserPages(ctx, notion, databaseID, userID)
	if err != nil {
		return res, fmt.Errorf("SyncTransactions: %w", err)
	}
	log.Info().
		Int("notion_pages", len(pages)).
		Int("transactions", len(txs)).
		Msg("Starting Notion sync")

	valid := make(map[string]bool, len(txs))
	for _, tx := range txs {
		valid[tx.ID] = true
	}

	existing := make(map[string]notionapi.Page, len(pages))
	for _, page := range pages {
		txID := extractTransactionID(page)
		_, dup := existing[txID]
		if txID != "" && valid[txID] && !dup {
			existing[txID] = page
			continue
		}
		if !dryRun {
			if err := notion.ArchivePage(ctx, string(page.ID)); err != nil {
				log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
				res.Failed++
				continue
			}
		}
		res.Archived++
	}

	for _, tx := range txs {
		props := TransactionToNotionProperties(tx)
		page, ok := existing[tx.ID]
		switch {
		case ok && textOf(page, PropFingerprint) == Fingerprint(tx):
			res.Skipped++
		case ok:
			if !dryRun {
				if _, err := notion.UpdatePage(ctx, string(page.ID), props); err != nil {
					log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to update Notion page")
					res.Failed++
					continue
				}
			}
			res.Updated++
		default:
			if !dryRun {
				if _, err := notion.CreatePage(ctx, databaseID, props); err != nil {
					log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
					res.Failed++
					continue
				}
			}
			res.Created++
		}
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("archived", res.Archived).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("Notion sync completed")
	return res, nil
}

// queryUserPages pages through every page of databaseID owned by userID.
func queryUserPages(ctx context.Context, notion NotionService, databaseID, userID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor
	for {
		req := &notionapi.DatabaseQueryRequest{
			Filter: notionapi.PropertyFilter{
				Property: PropUserID,
				RichText: &notionapi.TextFilterCondition{Equals: userID},
			},
			PageSize: pageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryUserPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}
