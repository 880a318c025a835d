package sweep

import (
	"log/slog"
	"net/http"

	"github.com/mailsweep/mailsweep/imapmail"
	"github.com/mailsweep/mailsweep/junk"
	"github.com/mailsweep/mailsweep/rules"
	"github.com/mailsweep/mailsweep/send"
	"github.com/mailsweep/mailsweep/unsub"
)

// InboxMailbox is the default mailbox operations act on.
const InboxMailbox = "INBOX"

// SpamMailbox is where detected junk is moved.
const SpamMailbox = "Spam"

// Config carries everything the client needs. Zero ports and paths fall
// back to sensible defaults; credentials are required for live use.
type Config struct {
	IMAPHost string
	IMAPPort int
	IMAPTLS  bool

	SMTPHost string
	SMTPPort int

	Address  string
	Password string

	// RulesPath locates the JSON rule store. Empty means "rules.json" in
	// the working directory.
	RulesPath string

	// ChunkSize bounds how many ids one protocol command addresses.
	ChunkSize int
}

// Client is the high-level mailbox-maintenance client. Construct it with
// New; the zero value is not usable.
type Client struct {
	imapCfg    imapmail.Config
	dial       imapmail.DialFunc
	gateway    *imapmail.Gateway
	classifier *junk.Classifier
	patterns   junk.PatternSet
	executor   *unsub.Executor
	httpClient *http.Client
	ruleStore  rules.Store
	rules      *rules.Manager
	engine     *rules.Engine
	sender     *send.Sender
	logger     *slog.Logger
	chunkSize  int
}

// Option customizes a Client at construction time.
type Option func(*Client)

// WithDialer replaces the live IMAP dialer. Tests use this to inject fake
// sessions.
func WithDialer(dial imapmail.DialFunc) Option {
	return func(c *Client) { c.dial = dial }
}

// WithLogger sets the structured logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRuleStore replaces the default file-backed rule store.
func WithRuleStore(store rules.Store) Option {
	return func(c *Client) { c.ruleStore = store }
}

// WithHTTPClient sets the client used for unsubscribe requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithPatterns replaces the junk pattern set.
func WithPatterns(patterns junk.PatternSet) Option {
	return func(c *Client) { c.patterns = patterns }
}

// New builds a client from cfg.
func New(cfg Config, opts ...Option) *Client {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = imapmail.DefaultChunkSize
	}
	if cfg.RulesPath == "" {
		cfg.RulesPath = "rules.json"
	}

	c := &Client{
		imapCfg: imapmail.Config{
			Host:     cfg.IMAPHost,
			Port:     cfg.IMAPPort,
			TLS:      cfg.IMAPTLS,
			Address:  cfg.Address,
			Password: cfg.Password,
		},
		dial:      imapmail.Dial,
		patterns:  junk.DefaultPatterns(),
		logger:    slog.New(slog.DiscardHandler),
		chunkSize: cfg.ChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.ruleStore == nil {
		c.ruleStore = rules.NewFileStore(cfg.RulesPath)
	}
	c.gateway = imapmail.NewGatewayDial(c.imapCfg, c.dial)
	c.classifier = junk.NewClassifier(c.patterns)
	c.rules = rules.NewManager(c.ruleStore)
	c.engine = rules.NewEngine(c.ruleStore, c.chunkSize, c.logger)
	c.sender = send.NewSender(send.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Address:  cfg.Address,
		Password: cfg.Password,
	})
	c.executor = unsub.NewExecutor(c.httpClient, mailtoSender{sender: c.sender})
	return c
}

// Send transmits an outgoing message and returns its Message-ID.
func (c *Client) Send(msg send.Message) (string, error) {
	return c.sender.Send(msg)
}

// mailtoSender executes mailto unsubscribes through the outbound transport.
type mailtoSender struct {
	sender *send.Sender
}

func (m mailtoSender) SendUnsubscribe(address string) error {
	_, err := m.sender.Send(send.Message{
		To:      []string{address},
		Subject: "unsubscribe",
		Body:    "Please remove this address from your mailing list.",
	})
	return err
}

func defaultMailbox(mailbox string) string {
	if mailbox == "" {
		return InboxMailbox
	}
	return mailbox
}
