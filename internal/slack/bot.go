// Package slack provides a Slack frontend for Testimator using Socket Mode.
//
// Mention the bot with "interview <job title>" to start a mock interview;
// the interview lives in the resulting thread. Mention the bot again inside
// the thread to answer each question, and "stop" to abandon it.
package slack

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/interview"
	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/session"
)

// Bot is the Slack Socket Mode bot for Testimator.
type Bot struct {
	api          *slack.Client
	socketClient *socketmode.Client
	engine       *interview.Engine

	// interviews maps thread key -> job title for active interviews.
	mu         sync.RWMutex
	interviews map[string]string
}

// NewBot creates a new Slack Socket Mode bot.
func NewBot(botToken, appToken string, eng *interview.Engine) *Bot {
	api := slack.New(
		botToken,
		slack.OptionAppLevelToken(appToken),
	)

	socketClient := socketmode.New(
		api,
		socketmode.OptionLog(log.New(log.Writer(), "slack-socketmode: ", log.LstdFlags)),
	)

	return &Bot{
		api:          api,
		socketClient: socketClient,
		engine:       eng,
		interviews:   make(map[string]string),
	}
}

// Run connects to Slack via Socket Mode and processes events.
func (b *Bot) Run(ctx context.Context) error {
	go b.eventLoop(ctx)
	log.Println("Slack bot connecting via Socket Mode...")
	return b.socketClient.RunContext(ctx)
}

func (b *Bot) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-b.socketClient.Events:
			if !ok {
				return
			}
			b.handleEvent(ctx, evt)
		}
	}
}

func (b *Bot) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		log.Println("Slack: connecting...")
	case socketmode.EventTypeConnected:
		log.Println("Slack: connected")
	case socketmode.EventTypeConnectionError:
		log.Println("Slack: connection error, will retry...")
	case socketmode.EventTypeEventsAPI:
		eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		b.socketClient.Ack(*evt.Request)

		if eventsAPIEvent.Type == slackevents.CallbackEvent {
			b.handleCallbackEvent(ctx, eventsAPIEvent.InnerEvent)
		}
	case socketmode.EventTypeInteractive:
		b.socketClient.Ack(*evt.Request)
	}
}

func (b *Bot) handleCallbackEvent(ctx context.Context, innerEvent slackevents.EventsAPIInnerEvent) {
	switch ev := innerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		go b.handleMention(ctx, ev)
	}
}

func (b *Bot) handleMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	text := ev.Text
	if idx := strings.Index(text, ">"); idx >= 0 {
		text = strings.TrimSpace(text[idx+1:])
	}

	threadTS := ev.TimeStamp
	if ev.ThreadTimeStamp != "" {
		threadTS = ev.ThreadTimeStamp
	}
	key := sessionKey(ev.Channel, threadTS)

	b.mu.RLock()
	jobTitle, active := b.interviews[key]
	b.mu.RUnlock()

	switch {
	case strings.HasPrefix(strings.ToLower(text), "interview "):
		jobTitle = strings.TrimSpace(text[len("interview "):])
		if jobTitle == "" {
			b.postThread(ev.Channel, threadTS,
				"Please name the role. Example:\n`@testimator interview Backend Engineer`")
			return
		}
		b.startInterview(ctx, ev.Channel, threadTS, key, jobTitle)

	case strings.EqualFold(text, "stop"):
		b.stopInterview(ev.Channel, threadTS, key, active)

	case active:
		if text == "" {
			return
		}
		b.handleTurn(ctx, ev.Channel, threadTS, key, jobTitle, text)

	default:
		b.postThread(ev.Channel, threadTS,
			"No interview running in this thread. Start one with:\n`@testimator interview <job title>`")
	}
}

func (b *Bot) startInterview(ctx context.Context, channel, threadTS, key, jobTitle string) {
	b.engine.Reset(key)

	b.mu.Lock()
	b.interviews[key] = jobTitle
	b.mu.Unlock()

	b.postThread(channel, threadTS,
		fmt.Sprintf(":speech_balloon: *Mock interview for %s* — answer each question by mentioning me in this thread.", jobTitle))

	ex, err := b.engine.Converse(ctx, key, jobTitle, session.StartSentinel)
	if err != nil {
		log.Printf("Slack: failed to start interview %s: %v", key, err)
		b.postThread(channel, threadTS, ":x: Couldn't start the interview, please try again.")
		return
	}

	b.postThread(channel, threadTS, ex.Reply)
}

func (b *Bot) handleTurn(ctx context.Context, channel, threadTS, key, jobTitle, text string) {
	ex, err := b.engine.Converse(ctx, key, jobTitle, text)
	if err != nil {
		log.Printf("Slack: turn failed for %s: %v", key, err)
		b.postThread(channel, threadTS, ":x: Something went wrong, your answer was not lost. Send it again.")
		return
	}

	b.postThread(channel, threadTS, ex.Reply)

	if ex.Stage == session.StageComplete {
		b.mu.Lock()
		delete(b.interviews, key)
		b.mu.Unlock()
		b.postThread(channel, threadTS,
			":white_check_mark: Interview complete. Start another with `@testimator interview <job title>`")
	}
}

func (b *Bot) stopInterview(channel, threadTS, key string, active bool) {
	if !active {
		b.postThread(channel, threadTS, "No interview running in this thread.")
		return
	}

	b.mu.Lock()
	delete(b.interviews, key)
	b.mu.Unlock()

	b.engine.Reset(key)
	b.postThread(channel, threadTS, ":octagonal_sign: Interview stopped.")
}

func sessionKey(channel, threadTS string) string {
	return fmt.Sprintf("slack-%s-%s", channel, threadTS)
}

func (b *Bot) postThread(channel, threadTS, text string) {
	if text == "" {
		return
	}
	_, _, err := b.api.PostMessage(channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(threadTS),
	)
	if err != nil {
		log.Printf("Slack: failed to post message to %s: %v", channel, err)
	}
}
