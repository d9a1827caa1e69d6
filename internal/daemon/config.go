// Package daemon holds the Haruchi configuration: TOML file plus
// environment overrides for secrets and collection IDs.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/haruchi-os/haruchi-sync/internal/domain"
)

// Config is the full daemon configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	Store   StoreConfig   `toml:"store"`
	Sync    SyncConfig    `toml:"sync"`
	Journal JournalConfig `toml:"journal"`
	Log     LogConfig     `toml:"log"`
	Ledger  LedgerConfig  `toml:"ledger"`
	Sources SourcesConfig `toml:"sources"`
}

// APIConfig configures the HTTP read endpoint.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// Addr returns the host:port listen address.
func (a APIConfig) Addr() string { return fmt.Sprintf("%s:%d", a.Host, a.Port) }

// StoreConfig configures the tabular-store client. The token comes from
// the NOTION_API_KEY environment variable, never from the file.
type StoreConfig struct {
	Token   string `toml:"-"`
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// SyncConfig configures sync pass execution.
type SyncConfig struct {
	Interval    string `toml:"interval"`     // between passes in serve mode
	PassTimeout string `toml:"pass_timeout"` // budget for one pass
}

// JournalConfig configures the local run-history journal.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json or console
}

// LedgerConfig maps the XP ledger collection's property names.
type LedgerConfig struct {
	CollectionID string `toml:"-"` // XP_LOG_DB_ID
	ProfileID    string `toml:"-"` // HARUCHI_PAGE_ID
	TitleKey     string `toml:"title_key"`
	DateKey      string `toml:"date_key"`
	TypeKey      string `toml:"type_key"`
	AmountKey    string `toml:"amount_key"`
	UniqueKey    string `toml:"unique_key"`
	ProfileKey   string `toml:"profile_key"`
}

// SourceConfig maps one source collection's property names. A source with
// no collection ID is disabled.
type SourceConfig struct {
	CollectionID string `toml:"-"` // from env, per source
	Category     string `toml:"category"`
	TitleKey     string `toml:"title_key"`
	DoneKey      string `toml:"done_key"`
	StatusKey    string `toml:"status_key"`
	TargetStatus string `toml:"target_status"`
	GrantedKey   string `toml:"granted_key"`
	RelationKey  string `toml:"relation_key"`
	Reward       int    `toml:"reward"` // flat amount, or the book default bonus
}

// SourcesConfig holds the six supported sources.
type SourcesConfig struct {
	Todo           SourceConfig `toml:"todo"`
	Routine        SourceConfig `toml:"routine"`
	Workout        SourceConfig `toml:"workout"`
	ReadingSession SourceConfig `toml:"reading_session"`
	Book           SourceConfig `toml:"book"`
	SNS            SourceConfig `toml:"sns"`
}

// DefaultConfig returns the built-in defaults: the property names match
// the stock Haruchi workspace templates.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8787,
			Metrics: true,
		},
		Store: StoreConfig{
			Timeout: "30s",
		},
		Sync: SyncConfig{
			Interval:    "5m",
			PassTimeout: "5m",
		},
		Journal: JournalConfig{
			Enabled: true,
			Dir:     defaultJournalDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Ledger: LedgerConfig{
			TitleKey:   "[타입] · [원본/내용] · [XP]",
			DateKey:    "날짜",
			TypeKey:    "타입",
			AmountKey:  "XP",
			UniqueKey:  "지급키",
			ProfileKey: "하루치 DB",
		},
		Sources: SourcesConfig{
			Todo: SourceConfig{
				Category:    "할일",
				TitleKey:    "할 일",
				DoneKey:     "완료",
				GrantedKey:  "XP 지급됨",
				RelationKey: "할일 DB",
				Reward:      10,
			},
			Routine: SourceConfig{
				Category:    "루틴",
				TitleKey:    "이름",
				DoneKey:     "완료",
				GrantedKey:  "XP 지급됨",
				RelationKey: "루틴 DB",
				Reward:      20,
			},
			Workout: SourceConfig{
				Category:    "운동",
				TitleKey:    "운동",
				DoneKey:     "완료",
				GrantedKey:  "XP 지급됨",
				RelationKey: "운동 DB",
				Reward:      80,
			},
			ReadingSession: SourceConfig{
				Category:    "독서",
				TitleKey:    "세션 이름",
				DoneKey:     "완료",
				GrantedKey:  "XP 지급됨",
				RelationKey: "독서 DB",
				Reward:      40,
			},
			Book: SourceConfig{
				Category:     "독서",
				TitleKey:     "책 이름",
				StatusKey:    "상태",
				TargetStatus: "완독",
				GrantedKey:   "XP 지급됨",
				RelationKey:  "책형DB",
				Reward:       300,
			},
			SNS: SourceConfig{
				Category:     "콘텐츠",
				TitleKey:     "제목",
				StatusKey:    "상태",
				TargetStatus: "발행",
				GrantedKey:   "XP 지급됨",
				RelationKey:  "SNS DB",
			},
		},
	}
}

// Load reads the config file (optional), then applies environment
// overrides. A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("load config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv pulls secrets and collection IDs from the environment. These
// never live in the config file.
func (c *Config) applyEnv() {
	setIfEnv(&c.Store.Token, "NOTION_API_KEY")
	setIfEnv(&c.Ledger.CollectionID, "XP_LOG_DB_ID")
	setIfEnv(&c.Ledger.ProfileID, "HARUCHI_PAGE_ID")
	setIfEnv(&c.Sources.Todo.CollectionID, "TODO_DB_ID")
	setIfEnv(&c.Sources.Routine.CollectionID, "ROUTINE_DB_ID")
	setIfEnv(&c.Sources.Workout.CollectionID, "WORKOUT_DB_ID")
	setIfEnv(&c.Sources.ReadingSession.CollectionID, "READING_SESSION_DB_ID")
	setIfEnv(&c.Sources.Book.CollectionID, "READING_BOOK_DB_ID")
	setIfEnv(&c.Sources.SNS.CollectionID, "SNS_DB_ID")
}

func setIfEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ValidateSync checks the settings a sync pass cannot run without.
func (c *Config) ValidateSync() error {
	switch {
	case c.Store.Token == "":
		return fmt.Errorf("%w: NOTION_API_KEY", domain.ErrMissingConfig)
	case c.Ledger.CollectionID == "":
		return fmt.Errorf("%w: XP_LOG_DB_ID", domain.ErrMissingConfig)
	case c.Ledger.ProfileID == "":
		return fmt.Errorf("%w: HARUCHI_PAGE_ID", domain.ErrMissingConfig)
	}
	return nil
}

// LedgerReadable reports whether the read endpoint can aggregate XP.
func (c *Config) LedgerReadable() bool {
	return c.Store.Token != "" && c.Ledger.CollectionID != "" && c.Ledger.ProfileID != ""
}

// DomainLedger converts the ledger mapping to its domain form.
func (c *Config) DomainLedger() domain.LedgerConfig {
	return domain.LedgerConfig{
		CollectionID: c.Ledger.CollectionID,
		ProfileID:    c.Ledger.ProfileID,
		TitleKey:     c.Ledger.TitleKey,
		DateKey:      c.Ledger.DateKey,
		TypeKey:      c.Ledger.TypeKey,
		AmountKey:    c.Ledger.AmountKey,
		UniqueKey:    c.Ledger.UniqueKey,
		ProfileKey:   c.Ledger.ProfileKey,
	}
}

// snsTiers is the platform payout table. First match on the platform
// label wins; anything else falls back to 10.
func snsTiers() []domain.Tier {
	return []domain.Tier{
		{Match: "쓰레드", Amount: 20},
		{Match: "인스타", Amount: 30},
		{Match: "블로그", Amount: 80},
	}
}

// Descriptors converts the source configuration into sync descriptors.
// Order is fixed: simple checkbox sources first, then the status-driven
// book and SNS sources.
func (c *Config) Descriptors() []domain.SourceDescriptor {
	s := c.Sources
	return []domain.SourceDescriptor{
		simpleDescriptor("todo", s.Todo),
		simpleDescriptor("routine", s.Routine),
		simpleDescriptor("workout", s.Workout),
		simpleDescriptor("reading_session", s.ReadingSession),
		{
			Name:         "book",
			CollectionID: s.Book.CollectionID,
			Category:     s.Book.Category,
			TitleKey:     s.Book.TitleKey,
			StatusKey:    s.Book.StatusKey,
			TargetStatus: s.Book.TargetStatus,
			GrantedKey:   s.Book.GrantedKey,
			RelationKey:  s.Book.RelationKey,
			Reward:       domain.BonusReward(s.Book.Reward, "완독 보너스 XP"),
		},
		{
			Name:         "sns",
			CollectionID: s.SNS.CollectionID,
			Category:     s.SNS.Category,
			TitleKey:     s.SNS.TitleKey,
			StatusKey:    s.SNS.StatusKey,
			TargetStatus: s.SNS.TargetStatus,
			GrantedKey:   s.SNS.GrantedKey,
			RelationKey:  s.SNS.RelationKey,
			Reward:       domain.TieredReward("선택", snsTiers(), 10),
		},
	}
}

func simpleDescriptor(name string, s SourceConfig) domain.SourceDescriptor {
	return domain.SourceDescriptor{
		Name:         name,
		CollectionID: s.CollectionID,
		Category:     s.Category,
		TitleKey:     s.TitleKey,
		DoneKey:      s.DoneKey,
		GrantedKey:   s.GrantedKey,
		RelationKey:  s.RelationKey,
		Reward:       domain.FlatReward(s.Reward),
	}
}

// StoreTimeout parses the store timeout, falling back to 30 seconds.
func (c *Config) StoreTimeout() time.Duration {
	return parseDuration(c.Store.Timeout, 30*time.Second)
}

// PassTimeout parses the per-pass budget, falling back to 5 minutes.
func (c *Config) PassTimeout() time.Duration {
	return parseDuration(c.Sync.PassTimeout, 5*time.Minute)
}

// SyncInterval parses the serve-mode pass interval, falling back to 5 minutes.
func (c *Config) SyncInterval() time.Duration {
	return parseDuration(c.Sync.Interval, 5*time.Minute)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func defaultJournalDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".haruchi"
	}
	return filepath.Join(home, ".haruchi")
}
