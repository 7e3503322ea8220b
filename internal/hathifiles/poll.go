package hathifiles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// updateFileDate matches the YYYYMMDD embedded in upstream update-file names,
// e.g. hathi_upd_20241114.txt.gz.
var updateFileDate = regexp.MustCompile(`(\d{8})`)

// listEntry is one row of hathi_file_list.json. Full-dump entries have
// "full": true; we only track incremental update files.
type listEntry struct {
	Filename string `json:"filename"`
	Full     bool   `json:"full"`
}

// Poller watches hathitrust.org for update files that have not been seen
// before and notifies a webhook about them. Seen filenames persist in a flat
// JSON store file between runs.
type Poller struct {
	FileListURL string
	StorePath   string
	WebhookURL  string
	HTTPClient  *http.Client
	Now         func() time.Time
}

func NewPoller(fileListURL, storePath, webhookURL string) *Poller {
	return &Poller{
		FileListURL: fileListURL,
		StorePath:   storePath,
		WebhookURL:  webhookURL,
		HTTPClient:  &http.Client{Timeout: 60 * time.Second},
		Now:         time.Now,
	}
}

// CreateStoreFile seeds the store from the current upstream list. An existing
// store is left alone; it is never recreated once present.
func (p *Poller) CreateStoreFile(ctx context.Context) error {
	if _, err := os.Stat(p.StorePath); err == nil {
		log.Printf("store file %s already exists; leaving it alone", p.StorePath)
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	updateFiles, err := p.fetchUpdateFiles(ctx)
	if err != nil {
		return err
	}
	return p.writeStore(updateFiles)
}

// CheckForNewUpdateFiles fetches the upstream list, diffs it against the
// store, notifies the webhook about anything new and rewrites the store with
// entries older than a year pruned. Returns the new filenames.
func (p *Poller) CheckForNewUpdateFiles(ctx context.Context) ([]string, error) {
	updateFiles, err := p.fetchUpdateFiles(ctx)
	if err != nil {
		return nil, err
	}

	store, err := p.readStore()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(store))
	for _, name := range store {
		seen[name] = true
	}
	newFiles := make([]string, 0)
	for _, name := range updateFiles {
		if !seen[name] {
			newFiles = append(newFiles, name)
		}
	}

	if len(newFiles) == 0 {
		log.Printf("no new update files")
		return nil, nil
	}

	if err := p.notifyWebhook(ctx, newFiles); err != nil {
		return nil, err
	}
	if err := p.writeStore(append(p.pruneOldEntries(store), newFiles...)); err != nil {
		return nil, err
	}
	return newFiles, nil
}

func (p *Poller) fetchUpdateFiles(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.FileListURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file list request failed with status %d", resp.StatusCode)
	}

	var entries []listEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Full {
			names = append(names, entry.Filename)
		}
	}
	return names, nil
}

func (p *Poller) readStore() ([]string, error) {
	data, err := os.ReadFile(p.StorePath)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("corrupt store file %s: %w", p.StorePath, err)
	}
	return names, nil
}

func (p *Poller) writeStore(names []string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return os.WriteFile(p.StorePath, data, 0o644)
}

// pruneOldEntries keeps the store bounded: names whose embedded date is more
// than a year old drop out. Names without a parseable date are kept.
func (p *Poller) pruneOldEntries(names []string) []string {
	cutoff := p.Now().AddDate(-1, 0, 0)
	kept := make([]string, 0, len(names))
	for _, name := range names {
		match := updateFileDate.FindString(name)
		if match != "" {
			date, err := time.Parse("20060102", match)
			if err == nil && date.Before(cutoff) {
				continue
			}
		}
		kept = append(kept, name)
	}
	return kept
}

type webhookPayload struct {
	ID        string   `json:"id"`
	Filenames []string `json:"filenames"`
}

func (p *Poller) notifyWebhook(ctx context.Context, filenames []string) error {
	if p.WebhookURL == "" {
		return fmt.Errorf("webhook url is required")
	}

	body, err := json.Marshal(webhookPayload{
		ID:        uuid.NewString(),
		Filenames: filenames,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notification failed with status %d", resp.StatusCode)
	}
	log.Printf("notified webhook about %d new update files", len(filenames))
	return nil
}
