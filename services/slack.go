package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// postSlack sends text to an incoming webhook.
func postSlack(client *http.Client, webhookURL, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := client.Post(webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack status %d", resp.StatusCode)
	}
	return nil
}
