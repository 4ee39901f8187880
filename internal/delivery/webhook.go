// Package delivery posts rendered warning graphics to a webhook
// endpoint.
package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wxvisuals/warnmap/internal/alert"
	"github.com/wxvisuals/warnmap/internal/mapcompose"
)

const botUsername = "Visual Warnings Bot"

// Webhook delivers each alert as a multipart message carrying the
// rendered image plus a text summary.
type Webhook struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewWebhook(url string, timeout time.Duration, logger *zap.Logger) *Webhook {
	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (w *Webhook) Deliver(ctx context.Context, a alert.Alert, imagePath string) error {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return &alert.DeliveryError{AlertID: a.ID, Err: fmt.Errorf("reading image: %w", err)}
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return &alert.DeliveryError{AlertID: a.ID, Err: err}
	}
	if _, err := part.Write(image); err != nil {
		return &alert.DeliveryError{AlertID: a.ID, Err: err}
	}
	if err := form.WriteField("content", summarize(a)); err != nil {
		return &alert.DeliveryError{AlertID: a.ID, Err: err}
	}
	if err := form.WriteField("username", botUsername); err != nil {
		return &alert.DeliveryError{AlertID: a.ID, Err: err}
	}
	if err := form.Close(); err != nil {
		return &alert.DeliveryError{AlertID: a.ID, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, &body)
	if err != nil {
		return &alert.DeliveryError{AlertID: a.ID, Err: err}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return &alert.DeliveryError{AlertID: a.ID, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &alert.DeliveryError{
			AlertID: a.ID,
			Err:     fmt.Errorf("webhook returned status %d", resp.StatusCode),
		}
	}

	w.logger.Info("alert delivered",
		zap.String("alert_id", a.ID),
		zap.String("event", a.Event))
	return nil
}

// summarize builds the text companion to the image. Sections with no
// content are omitted rather than padded.
func summarize(a alert.Alert) string {
	var b strings.Builder

	event := a.Event
	if event == "" {
		event = "Weather Alert"
	}
	fmt.Fprintf(&b, "**%s**\n", event)

	if a.Headline != "" {
		fmt.Fprintf(&b, "%s\n", a.Headline)
	}
	fmt.Fprintf(&b, "Affected areas: %s\n", mapcompose.ExtractAffectedAreas(a))
	if a.NWSHeadline != "" {
		fmt.Fprintf(&b, "\n%s\n", a.NWSHeadline)
	}
	if a.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", a.Description)
	}
	if a.Instruction != "" {
		fmt.Fprintf(&b, "\n%s\n", a.Instruction)
	}
	return strings.TrimRight(b.String(), "\n")
}
