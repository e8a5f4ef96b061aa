// Package messenger delivers organizer messages to attendees.
package messenger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

type Recipient struct {
	Name  string
	Email string
}

type Message struct {
	EventID    string
	Subject    string
	Body       string
	Recipients []Recipient
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender only logs what would have been sent.
type LogSender struct {
	mu   sync.Mutex
	sent []Message
}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (l *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slog.Info("bulk message",
		"event_id", msg.EventID,
		"subject", msg.Subject,
		"recipients", len(msg.Recipients),
	)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, msg)
	return nil
}

// Sent returns every message passed to Send so far.
func (l *LogSender) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Message(nil), l.sent...)
}

// DiscordSender posts a summary of each message to an organizer channel.
type DiscordSender struct {
	session   *discordgo.Session
	channelID string
	// send latency in microseconds, may be nil
	latency chan<- float64
}

func NewDiscordSender(token, channelID string, latency chan<- float64) (*DiscordSender, error) {
	if token == "" || channelID == "" {
		return nil, fmt.Errorf("NewDiscordSender: token and channel id are required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("NewDiscordSender: %w", err)
	}
	return &DiscordSender{session: session, channelID: channelID, latency: latency}, nil
}

func (d *DiscordSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	startTimer := time.Now()
	if _, err := d.session.ChannelMessageSendEmbed(d.channelID, ToDiscordEmbed(msg)); err != nil {
		return fmt.Errorf("(*DiscordSender).Send: %w", err)
	}
	if d.latency != nil {
		select {
		case d.latency <- float64(time.Since(startTimer).Microseconds()):
		default:
		}
	}
	return nil
}

// ToDiscordEmbed renders a message the way it shows up in the organizer
// channel.
func ToDiscordEmbed(msg Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Subject,
		Description: msg.Body,
		Footer: &discordgo.MessageEmbedFooter{
			Text: msg.EventID,
		},
	}
	if embed.Title == "" {
		embed.Title = "Message to attendees"
	}

	if len(msg.Recipients) > 0 {
		names := make([]string, 0, len(msg.Recipients))
		for _, r := range msg.Recipients {
			names = append(names, fmt.Sprintf("%s <%s>", r.Name, r.Email))
		}
		value := strings.Join(names, ", ")
		// embed field values are capped at 1024 characters
		if len(value) > 1024 {
			value = value[:1020] + "..."
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Recipients (%d)", len(msg.Recipients)),
			Value: value,
		})
	}
	return embed
}
