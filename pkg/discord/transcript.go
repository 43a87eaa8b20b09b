package discord

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Jacobbrewer1/discordgo"
)

const (
	// transcriptPageSize is the most messages Discord returns per history request.
	transcriptPageSize = 100

	// transcriptMaxMessages bounds the history fetched for one transcript.
	transcriptMaxMessages = 5000
)

// renderTranscript writes a plain text transcript. Messages must be oldest first. Detailed
// transcripts include attachment links and embed titles.
func renderTranscript(name string, msgs []*discordgo.Message, detailed bool) []byte {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "Transcript of #%s (%d messages)\n\n", name, len(msgs))

	for _, m := range msgs {
		author := "unknown"
		if m.Author != nil {
			author = m.Author.Username
		}
		fmt.Fprintf(buf, "[%s] %s: %s\n", m.Timestamp.UTC().Format(time.RFC3339), author, m.Content)

		if !detailed {
			continue
		}
		for _, a := range m.Attachments {
			fmt.Fprintf(buf, "    attachment: %s %s\n", a.Filename, a.URL)
		}
		for _, e := range m.Embeds {
			if e.Title != "" || e.Description != "" {
				fmt.Fprintf(buf, "    embed: %s %s\n", e.Title, e.Description)
			}
		}
	}
	return buf.Bytes()
}

// reverse flips a history page from newest first to oldest first.
func reverse(msgs []*discordgo.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
