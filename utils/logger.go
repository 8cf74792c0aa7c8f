package utils

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

// embedSender is the part of a discordgo session the logger needs.
type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var (
	mu        sync.RWMutex
	session   embedSender
	channelID string
)

// InitLogger enables the Discord admin-channel sink. With an empty token or
// channel the logger only writes to the standard log.
func InitLogger(token, channel string) error {
	if token == "" || channel == "" {
		log.Println("Warning: admin.discord_token or admin.discord_channel is not set. Logging to channel will be disabled.")
		return nil
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	setSink(s, channel)
	return nil
}

func setSink(s embedSender, channel string) {
	mu.Lock()
	defer mu.Unlock()
	session = s
	channelID = channel
}

// Log writes a leveled message and mirrors it to the admin channel.
func Log(level, module, operation, details string) {
	log.Printf("[%s] Module: %s, Operation: %s, Details: %s", level, module, operation, details)

	mu.RLock()
	s, ch := session, channelID
	mu.RUnlock()
	if s == nil || ch == "" {
		return
	}

	var color int
	switch level {
	case "INFO":
		color = ColorInfo
	case "WARN":
		color = ColorWarn
	case "ERROR":
		color = ColorError
	default:
		color = ColorInfo
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", level),
		Color:     color,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Module",
				Value:  module,
				Inline: true,
			},
			{
				Name:   "Operation",
				Value:  operation,
				Inline: true,
			},
			{
				Name:  "Details",
				Value: truncate(details, 1024),
			},
		},
	}

	if _, err := s.ChannelMessageSendEmbed(ch, embed); err != nil {
		log.Printf("Error sending log message to Discord: %v", err)
	}
}

// Info logs an informational message.
func Info(module, operation, details string) {
	Log("INFO", module, operation, details)
}

// Warn logs a warning message.
func Warn(module, operation, details string) {
	Log("WARN", module, operation, details)
}

// Error logs an error message.
func Error(module, operation, details string) {
	Log("ERROR", module, operation, details)
}

// embed field values are capped by Discord
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// LeveledLogger adapts the standard log to retryablehttp. Errors are
// logged as warnings because the client retries them.
type LeveledLogger struct {
	Subsystem string
}

func (l LeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.print("WARN", msg, keysAndValues)
}

func (l LeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.print("WARN", msg, keysAndValues)
}

func (l LeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.print("INFO", msg, keysAndValues)
}

// Debug is dropped.
func (l LeveledLogger) Debug(string, ...interface{}) {}

func (l LeveledLogger) print(level, msg string, kv []interface{}) {
	line := fmt.Sprintf("[%s] %s: %s", level, l.Subsystem, msg)
	for i := 0; i+1 < len(kv); i += 2 {
		line += fmt.Sprintf(" %v=%v", kv[i], kv[i+1])
	}
	log.Print(line)
}
