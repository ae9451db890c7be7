// Package slack is the interactive surface: app mentions carrying a URL
// become scrape commands, results and exports are posted back to the thread.
package slack

import (
	"bytes"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/sitelens/sitelens/log"
)

// https://stackoverflow.com/a/3809435
const URL_REGEX = `https?:\/\/(www\.)?[-a-zA-Z0-9@:%._\+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_\+.~#?&//=]*)`

const MAX_LINKS_REGEX = `max=(\d+)`

const (
	ReplyMissingURL = "There doesn't seem to be a URL in your message. Mention me with a URL to analyze, add `links` to crawl linked pages and `max=N` (1-10) to bound them."
)

const (
	DefaultMaxLinks = 5
	MaxLinksBound   = 10
)

// Command is one user-initiated scrape request.
type Command struct {
	URL          string
	ExtractLinks bool
	MaxLinks     int

	ChannelID string
	UserID    string
	ThreadTS  string
}

var (
	urlRegex   = regexp.MustCompile(URL_REGEX)
	maxRegex   = regexp.MustCompile(MAX_LINKS_REGEX)
	linksRegex = regexp.MustCompile(`\blinks\b`)
)

type SlackHandler struct {
	log    zerolog.Logger
	client *socketmode.Client

	commands chan Command
}

func NewSlackHandler(appToken, botToken string) *SlackHandler {
	api := slack.New(
		botToken,
		slack.OptionAppLevelToken(appToken),
	)

	client := socketmode.New(api)

	return &SlackHandler{
		log:      log.NewLogger("slack"),
		client:   client,
		commands: make(chan Command, 16),
	}
}

// Commands returns the channel scrape commands are delivered on.
func (s *SlackHandler) Commands() <-chan Command {
	return s.commands
}

func (s *SlackHandler) Start() {
	go s.client.Run()

	for evt := range s.client.Events {
		switch evt.Type {
		case socketmode.EventTypeConnecting:
			s.log.Debug().Msg("Connecting to Slack with Socket Mode...")
		case socketmode.EventTypeConnectionError:
			s.log.Warn().Any("data", evt.Data).Msg("Connection failed. Retrying later...")
		case socketmode.EventTypeConnected:
			s.log.Info().Msg("Connected to Slack with Socket Mode")
		case socketmode.EventTypeEventsAPI:
			apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				s.log.Warn().Msg("Ignored event")
				continue
			}

			if err := s.onEvent(apiEvent); err != nil {
				s.log.Error().Err(err).Msg("Failed to handle event, will be retried")
				continue
			}

			// Acknowledge the event so it doesn't get retried
			s.client.Ack(*evt.Request)
		default:
			s.log.Trace().Str("type", string(evt.Type)).Msg("Ignored event")
		}
	}
}

func (s *SlackHandler) onEvent(event slackevents.EventsAPIEvent) error {
	if event.Type == slackevents.CallbackEvent {
		callbackEvent := event.InnerEvent
		switch ev := callbackEvent.Data.(type) {
		case *slackevents.AppMentionEvent:
			return s.onAppMention(ev)
		default:
			s.log.Debug().Str("type", callbackEvent.Type).Msg("Unhandled callback event")
		}
	}

	return nil
}

func (s *SlackHandler) onAppMention(event *slackevents.AppMentionEvent) error {
	cmd, ok := ParseCommand(event.Text)
	if !ok {
		s.log.Debug().Str("text", event.Text).Msg("Ignoring mention without URL")
		s.client.PostMessage(event.Channel, slack.MsgOptionText(ReplyMissingURL, false), slack.MsgOptionTS(event.TimeStamp))
		return nil
	}

	cmd.ChannelID = event.Channel
	cmd.UserID = event.User
	cmd.ThreadTS = event.TimeStamp

	s.log.Info().Str("url", cmd.URL).Bool("links", cmd.ExtractLinks).Int("max_links", cmd.MaxLinks).Msg("New scrape command")

	s.commands <- cmd
	return nil
}

// ParseCommand extracts a scrape command from mention text: the first URL,
// the `links` keyword, and an optional `max=N` bound clamped to 1-10.
func ParseCommand(text string) (Command, bool) {
	url := urlRegex.FindString(text)
	if url == "" {
		return Command{}, false
	}

	cmd := Command{
		URL:      url,
		MaxLinks: DefaultMaxLinks,
	}

	// Strip the URL first so a path like /links or a ?max= query parameter
	// doesn't read as an option.
	rest := urlRegex.ReplaceAllString(text, "")
	if linksRegex.MatchString(rest) {
		cmd.ExtractLinks = true
	}

	if match := maxRegex.FindStringSubmatch(rest); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil {
			switch {
			case n < 1:
				cmd.MaxLinks = 1
			case n > MaxLinksBound:
				cmd.MaxLinks = MaxLinksBound
			default:
				cmd.MaxLinks = n
			}
		}
	}

	return cmd, true
}

// PostMessage posts text to a channel, threaded when threadTS is non-nil.
func (s *SlackHandler) PostMessage(channel string, threadTS *string, text string) error {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != nil {
		opts = append(opts, slack.MsgOptionTS(*threadTS))
	}

	_, _, err := s.client.PostMessage(channel, opts...)
	return errors.Wrap(err, "failed to post message")
}

// PostEphemeral sends a message only the given user sees.
func (s *SlackHandler) PostEphemeral(channel, user, text string) {
	if _, err := s.client.PostEphemeral(channel, user, slack.MsgOptionText(text, false)); err != nil {
		s.log.Error().Err(err).Msg("Failed to post ephemeral message")
	}
}

// UploadFile uploads an export file into the thread.
func (s *SlackHandler) UploadFile(channel, threadTS, name string, content []byte) error {
	_, err := s.client.UploadFileV2(slack.UploadFileV2Parameters{
		Channel:         channel,
		ThreadTimestamp: threadTS,
		Filename:        name,
		Title:           name,
		Reader:          bytes.NewReader(content),
		FileSize:        len(content),
	})

	return errors.Wrapf(err, "failed to upload %s", name)
}
