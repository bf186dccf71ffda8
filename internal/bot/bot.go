package bot

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"jokefeed/internal/config"
	"jokefeed/internal/feed"
	"jokefeed/internal/ledger"
	"jokefeed/internal/models"
	"jokefeed/internal/prefs"
	"jokefeed/internal/remoteconfig"
	"jokefeed/internal/usage"
	"jokefeed/pkg/logger"

	"gopkg.in/telebot.v4"
)

// Bot is the single-owner Telegram surface over the usage core. Every user
// action funnels through the coordinator; the bot itself never writes the
// stores directly (except the review flag, which it owns as the
// review-request collaborator).
type Bot struct {
	settings telebot.Settings
	cfg      config.BotConfig

	coord  *usage.Coordinator
	gate   *usage.Gate
	feed   *feed.Client
	ledger *ledger.Store
	prefs  *prefs.Store
	rc     *remoteconfig.Reader

	tbot *telebot.Bot

	mu     sync.Mutex
	recent map[string]models.Joke
}

func New(cfg config.BotConfig, coord *usage.Coordinator, f *feed.Client, l *ledger.Store, p *prefs.Store, rc *remoteconfig.Reader) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	return &Bot{
		cfg:    cfg,
		coord:  coord,
		feed:   f,
		ledger: l,
		prefs:  p,
		rc:     rc,
		recent: make(map[string]models.Joke),
		settings: telebot.Settings{
			Token:  cfg.Token,
			Poller: &telebot.LongPoller{Timeout: 10},
		},
	}, nil
}

// AttachGate wires the review gate. Separate from New because the gate's
// reviewer collaborator is this bot.
func (b *Bot) AttachGate(g *usage.Gate) {
	b.gate = g
}

func (b *Bot) Start() (*telebot.Bot, error) {
	tbot, err := telebot.NewBot(b.settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.tbot = tbot
	b.setupHandlers(tbot)

	go tbot.Start()

	return tbot, nil
}

func (b *Bot) setupHandlers(bot *telebot.Bot) {
	bot.Handle("/start", b.ownerOnly(b.handleStart))
	bot.Handle("/joke", b.ownerOnly(b.handleJoke))
	bot.Handle("/category", b.ownerOnly(b.handleCategory))
	bot.Handle("/saved", b.ownerOnly(b.handleSaved))
	bot.Handle("/stats", b.ownerOnly(b.handleStats))
	bot.Handle("/help", b.ownerOnly(b.handleHelp))

	bot.Handle(telebot.OnCallback, b.ownerOnly(b.handleCallback))

	bot.Handle(telebot.OnText, b.ownerOnly(func(c telebot.Context) error {
		return c.Send("Use /joke to get a joke!")
	}))
}

// ownerOnly guards handlers: this instance keeps one profile, so only the
// configured owner chat is served.
func (b *Bot) ownerOnly(h telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if c.Sender() == nil || c.Sender().ID != b.cfg.OwnerID {
			logger.Debug("Ignoring non-owner chat",
				logger.Int64("user_id", senderID(c)),
			)
			return c.Send("This is a personal jokes feed. Sorry!")
		}
		return h(c)
	}
}

func senderID(c telebot.Context) int64 {
	if c.Sender() == nil {
		return 0
	}
	return c.Sender().ID
}

func (b *Bot) handleStart(c telebot.Context) error {
	b.coord.LogAppUsage()

	if done, _ := b.prefs.GetBool(prefs.KeyTourCompleted); !done {
		if err := b.prefs.SetBool(prefs.KeyTourCompleted, true); err != nil {
			logger.Error("Failed to persist tour flag", logger.Err(err))
		}
	}

	welcome := "*Welcome to jokefeed!*\n\n" +
		"Your personal jokes feed.\n\n" +
		"Commands:\n" +
		"- /joke - Get the next joke\n" +
		"- /category <name> - Jokes from one category\n" +
		"- /saved - Your saved jokes\n" +
		"- /stats - Usage statistics\n" +
		"- /help - Show this help message"

	return c.Send(welcome, &telebot.SendOptions{ParseMode: b.cfg.ParseMode})
}

func (b *Bot) handleJoke(c telebot.Context) error {
	b.coord.LogAppUsage()
	return b.sendJoke(c, "")
}

func (b *Bot) handleCategory(c telebot.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Send("Usage: /category <name>")
	}

	category := strings.ToLower(args[0])
	b.coord.LogCategoryViewed(category)

	return b.sendJoke(c, category)
}

func (b *Bot) sendJoke(c telebot.Context, category string) error {
	ctx := context.Background()

	jokes, err := b.feed.Fetch(ctx, category)
	if err != nil || len(jokes) == 0 {
		if err != nil {
			logger.Error("Failed to fetch feed", logger.Err(err))
		}
		return c.Send("Sorry, no jokes available right now. Try again later!")
	}

	joke := b.pickJoke(jokes)

	b.mu.Lock()
	b.recent[joke.ID] = joke
	b.mu.Unlock()

	b.coord.LogJokeNavigated(joke)
	b.coord.LogJokeViewed(joke)

	msg := joke.SetupText
	if joke.PunchlineText != "" {
		msg = fmt.Sprintf("%s\n\n_%s_", joke.SetupText, joke.PunchlineText)
	}

	markup := &telebot.ReplyMarkup{}
	save := markup.Data("Save", "save", joke.ID)
	share := markup.Data("Share", "share", joke.ID)
	markup.Inline(markup.Row(save, share))

	if err := c.Send(msg, markup, &telebot.SendOptions{ParseMode: b.cfg.ParseMode}); err != nil {
		return err
	}

	b.maybeAskForReview(ctx, "joke_viewed")
	return nil
}

// pickJoke applies the remote feedMode: shuffled draws randomly, anything
// else takes the feed head.
func (b *Bot) pickJoke(jokes []models.Joke) models.Joke {
	mode := b.rc.GetEnum(remoteconfig.ParamFeedMode)
	if mode == "shuffled" {
		return jokes[rand.Intn(len(jokes))]
	}
	return jokes[0]
}

func (b *Bot) handleCallback(c telebot.Context) error {
	// telebot prefixes inline-button callbacks with "\f<unique>|<data>".
	data := strings.TrimPrefix(strings.TrimSpace(c.Callback().Data), "\f")
	parts := strings.Split(data, "|")
	if len(parts) != 2 {
		return c.Respond()
	}
	action, jokeID := parts[0], parts[1]

	b.mu.Lock()
	joke, ok := b.recent[jokeID]
	b.mu.Unlock()
	if !ok {
		joke = models.Joke{ID: jokeID}
	}

	switch action {
	case "save":
		b.coord.IncrementSavedJokesCount(joke)
		_ = c.Respond(&telebot.CallbackResponse{Text: "Saved!"})
	case "unsave":
		b.coord.DecrementSavedJokesCount()
		_ = c.Respond(&telebot.CallbackResponse{Text: "Removed."})
	case "share":
		b.coord.IncrementSharedJokesCount(joke)
		_ = c.Respond(&telebot.CallbackResponse{Text: "Copied to share!"})
		return b.sendShareText(c, joke)
	default:
		return c.Respond()
	}

	b.maybeAskForReview(context.Background(), "joke_"+action)
	return nil
}

func (b *Bot) sendShareText(c telebot.Context, joke models.Joke) error {
	text := joke.SetupText
	if joke.PunchlineText != "" {
		text += "\n\n" + joke.PunchlineText
	}

	if b.rc.GetBool(remoteconfig.ParamShareImagesEnabled) && joke.SetupImageURL != "" {
		text += "\n" + joke.SetupImageURL
	}

	return c.Send(text)
}

func (b *Bot) handleSaved(c telebot.Context) error {
	ctx := context.Background()

	records, err := b.ledger.QueryJokeInteractions(ctx, ledger.QueryFilter{
		SavedOnly: true,
		Limit:     10,
	})
	if err != nil {
		logger.Error("Failed to query saved jokes", logger.Err(err))
		return c.Send("Failed to load saved jokes")
	}
	if len(records) == 0 {
		return c.Send("No saved jokes yet. Tap Save under a joke!")
	}

	var sb strings.Builder
	sb.WriteString("*Saved jokes*\n")
	for _, rec := range records {
		sb.WriteString("\n- ")
		if rec.SetupText != nil {
			sb.WriteString(*rec.SetupText)
		} else {
			sb.WriteString(rec.JokeID)
		}
	}

	return c.Send(sb.String(), &telebot.SendOptions{ParseMode: b.cfg.ParseMode})
}

func (b *Bot) handleStats(c telebot.Context) error {
	snap := b.coord.Snapshot()

	first, _ := b.prefs.GetString(prefs.KeyFirstUsedDate)
	total, err := b.ledger.CountJokeInteractions(context.Background())
	if err != nil {
		logger.Error("Failed to count interactions", logger.Err(err))
	}

	stats := fmt.Sprintf(
		"*Usage statistics*\n\n"+
			"Days used: %d\n"+
			"Jokes viewed: %d\n"+
			"Jokes saved: %d\n"+
			"Jokes shared: %d\n"+
			"Jokes in ledger: %d\n"+
			"First used: %s",
		snap.NumDaysUsed, snap.NumJokesViewed, snap.NumSavedJokes,
		snap.NumSharedJokes, total, first,
	)

	return c.Send(stats, &telebot.SendOptions{ParseMode: b.cfg.ParseMode})
}

func (b *Bot) handleHelp(c telebot.Context) error {
	help := "*Help*\n\n" +
		"Commands:\n" +
		"- /start - Start the feed\n" +
		"- /joke - Get the next joke\n" +
		"- /category <name> - Jokes from one category\n" +
		"- /saved - Your saved jokes\n" +
		"- /stats - Usage statistics\n" +
		"- /help - Show this help message"

	return c.Send(help, &telebot.SendOptions{ParseMode: b.cfg.ParseMode})
}

func (b *Bot) maybeAskForReview(ctx context.Context, source string) {
	if b.gate == nil {
		return
	}
	b.gate.MaybePromptForReview(ctx, b.coord.Snapshot(), source)
}

// RequestReview implements the review-request collaborator: it asks the
// owner to rate the bot and marks the review-requested flag only after the
// prompt was actually delivered.
func (b *Bot) RequestReview(ctx context.Context) error {
	msg := "Enjoying jokefeed? A rating on the bot directory would mean a lot!"

	_, err := b.tbot.Send(&telebot.Chat{ID: b.cfg.OwnerID}, msg)
	if err != nil {
		return fmt.Errorf("failed to send review prompt: %w", err)
	}

	if err := b.prefs.SetBool(prefs.KeyReviewRequested, true); err != nil {
		return fmt.Errorf("failed to persist review flag: %w", err)
	}

	return nil
}
