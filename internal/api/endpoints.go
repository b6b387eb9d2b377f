package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/saathi/saathi-cli/internal/models"
)

// Login exchanges credentials for a bearer token and stores it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/login", body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("login response missing token")
	}
	c.SetToken(out.Token)
	return out.Token, nil
}

// Register creates a new backend account. The user still logs in afterwards;
// no token is issued here.
func (c *Client) Register(ctx context.Context, username, password, displayName string) error {
	body := map[string]string{
		"username":     username,
		"password":     password,
		"display_name": displayName,
	}
	return c.doJSON(ctx, http.MethodPost, "/register", body, nil)
}

// Me validates that the stored token is still live.
func (c *Client) Me(ctx context.Context) (models.Profile, error) {
	var out models.Profile
	err := c.doJSON(ctx, http.MethodGet, "/me", nil, &out)
	return out, err
}

// AskPDF asks a question about the most recently uploaded PDF.
func (c *Client) AskPDF(ctx context.Context, question string) (models.ChatReply, error) {
	var out models.ChatReply
	err := c.doJSON(ctx, http.MethodPost, "/ask-pdf", map[string]string{"message": question}, &out)
	return out, err
}

// AskKB asks a question about a selected knowledge-base document.
func (c *Client) AskKB(ctx context.Context, path, question string) (models.ChatReply, error) {
	var out models.ChatReply
	body := map[string]string{"path": path, "message": question}
	err := c.doJSON(ctx, http.MethodPost, "/ask-kb", body, &out)
	return out, err
}

// AskWebsite asks a question about the page at the given URL.
func (c *Client) AskWebsite(ctx context.Context, target, question string) (models.ChatReply, error) {
	var out models.ChatReply
	body := map[string]string{"url": target, "question": question}
	err := c.doJSON(ctx, http.MethodPost, "/ask-website", body, &out)
	return out, err
}

// AskDB runs a natural-language database query.
func (c *Client) AskDB(ctx context.Context, question string) (models.TableReply, error) {
	var out models.TableReply
	err := c.doJSON(ctx, http.MethodPost, "/ask-db", map[string]string{"message": question}, &out)
	return out, err
}

// CuratedInsights fetches the user's curated analytic reports.
func (c *Client) CuratedInsights(ctx context.Context) ([]models.Insight, error) {
	var out []models.Insight
	if err := c.doJSON(ctx, http.MethodGet, "/curated-insights", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GeneratePrompts derives smart follow-up questions from an answer.
func (c *Client) GeneratePrompts(ctx context.Context, text string) ([]string, error) {
	var out struct {
		Prompts []string `json:"prompts"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/generate-prompts", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return out.Prompts, nil
}

// GenerateOutline derives a structured outline from an answer.
func (c *Client) GenerateOutline(ctx context.Context, text string) (string, error) {
	var out struct {
		Outline string `json:"outline"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/generate-outline", map[string]string{"text": text}, &out); err != nil {
		return "", err
	}
	return out.Outline, nil
}

// ExportOutlinePPT renders an outline as a PowerPoint deck.
func (c *Client) ExportOutlinePPT(ctx context.Context, outline string) (models.BlobReply, error) {
	data, err := c.doBlob(ctx, http.MethodPost, "/export-outline-ppt", map[string]string{"outline": outline})
	if err != nil {
		return models.BlobReply{}, err
	}
	return models.BlobReply{Filename: "outline.pptx", Data: data}, nil
}

// ExportOutlinePDF renders an outline as a PDF document.
func (c *Client) ExportOutlinePDF(ctx context.Context, outline string) (models.BlobReply, error) {
	data, err := c.doBlob(ctx, http.MethodPost, "/export-outline-pdf", map[string]string{"outline": outline})
	if err != nil {
		return models.BlobReply{}, err
	}
	return models.BlobReply{Filename: "outline.pdf", Data: data}, nil
}

// ExportExcel downloads the latest database result set as a spreadsheet.
func (c *Client) ExportExcel(ctx context.Context) (models.BlobReply, error) {
	data, err := c.doBlob(ctx, http.MethodGet, "/export-outline-excel", nil)
	if err != nil {
		return models.BlobReply{}, err
	}
	return models.BlobReply{Filename: "results.xlsx", Data: data}, nil
}

// UploadPDF sends a document for the ad-hoc PDF topic as multipart form data.
func (c *Client) UploadPDF(ctx context.Context, filename string, r io.Reader) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-pdf", &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ListKBFolders lists the top-level knowledge-base folders.
func (c *Client) ListKBFolders(ctx context.Context) ([]string, error) {
	var out struct {
		Folders []string `json:"folders"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/list-kb-folders", nil, &out); err != nil {
		return nil, err
	}
	return out.Folders, nil
}

// ListKBFolder lists the documents under one knowledge-base folder.
func (c *Client) ListKBFolder(ctx context.Context, folder string) ([]string, error) {
	var out struct {
		Files []string `json:"files"`
	}
	path := "/list-kb-folder?folder=" + url.QueryEscape(folder)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// ListKBFAQ fetches the curated questions for a knowledge-base document.
func (c *Client) ListKBFAQ(ctx context.Context, pdfPath string) ([]models.FAQ, error) {
	var out struct {
		Questions []models.FAQ `json:"questions"`
	}
	path := "/list-kb-faq?pdf_path=" + url.QueryEscape(pdfPath)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

// ResponseRating fetches the aggregate rating for one document/question pair.
func (c *Client) ResponseRating(ctx context.Context, pdfPath, query string) (models.FAQ, error) {
	var out struct {
		AvgRating    float64 `json:"avg_rating"`
		TotalRatings int     `json:"total_ratings"`
	}
	path := "/response-rating?pdf_path=" + url.QueryEscape(pdfPath) + "&query=" + url.QueryEscape(query)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return models.FAQ{}, err
	}
	return models.FAQ{Query: query, AvgRating: out.AvgRating, TotalRatings: out.TotalRatings}, nil
}

// RateResponse records a 1-5 rating for a knowledge-base answer.
func (c *Client) RateResponse(ctx context.Context, pdfPath, query string, rating int) error {
	body := map[string]any{"pdf_path": pdfPath, "query": query, "rating": rating}
	return c.doJSON(ctx, http.MethodPost, "/rate-response", body, nil)
}
