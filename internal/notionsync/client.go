package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// maxRetries is how often a rate-limited (429) call is retried by the SDK.
const maxRetries = 3

// NotionClient talks to the Notion REST API on behalf of one integration.
type NotionClient struct {
	api *notionapi.Client
}

// NewNotionClient creates a client authenticated with an integration token.
// Extra options are passed to the SDK, e.g. notionapi.WithHTTPClient.
func NewNotionClient(token string, opts ...notionapi.ClientOption) *NotionClient {
	opts = append([]notionapi.ClientOption{notionapi.WithRetry(maxRetries)}, opts...)
	return &NotionClient{api: notionapi.NewClient(notionapi.Token(token), opts...)}
}

func inDatabase(databaseID string) notionapi.Parent {
	return notionapi.Parent{
		Type:       notionapi.ParentTypeDatabaseID,
		DatabaseID: notionapi.DatabaseID(databaseID),
	}
}

func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	page, err := n.api.Page.Create(ctx, &notionapi.PageCreateRequest{Parent: inDatabase(databaseID), Properties: properties})
	if err != nil {
		return nil, fmt.Errorf("CreatePage in %s: %w", databaseID, err)
	}
	return page, nil
}

func (n *NotionClient) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	return n.update(ctx, pageID, &notionapi.PageUpdateRequest{Properties: properties})
}

func (n *NotionClient) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := n.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
	if err != nil {
		return nil, fmt.Errorf("QueryDatabase %s: %w", databaseID, err)
	}
	return resp, nil
}

// ArchivePage moves a page to the trash. Notion has no hard delete.
func (n *NotionClient) ArchivePage(ctx context.Context, pageID string) error {
	_, err := n.update(ctx, pageID, &notionapi.PageUpdateRequest{Archived: true})
	return err
}

func (n *NotionClient) update(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	page, err := n.api.Page.Update(ctx, notionapi.PageID(pageID), req)
	if err != nil {
		return nil, fmt.Errorf("update page %s: %w", pageID, err)
	}
	return page, nil
}

var _ NotionService = (*NotionClient)(nil)
