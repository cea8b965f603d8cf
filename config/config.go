package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/srujanra/apps-dash/internal/domain"
)

// Config es la configuración completa del backtester.
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	Market   MarketConfig   `yaml:"market"`
	Data     DataConfig     `yaml:"data"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// BacktestConfig controla la generación de trials y la evaluación de TIR.
type BacktestConfig struct {
	Ticker       string   `yaml:"ticker"`
	Ccy          string   `yaml:"ccy"`
	Start        string   `yaml:"start"` // YYYY-MM-DD; "" explícito = inicio de la serie
	End          string   `yaml:"end"`   // YYYY-MM-DD; "" explícito = fin de la serie
	PeriodMonths int      `yaml:"period_months"` // meses entre observaciones de barrera
	TenorMonths  int      `yaml:"tenor_months"`  // múltiplo de period_months
	StrikePct    float64  `yaml:"strike_pct"`
	BarrierPct   float64  `yaml:"barrier_pct"`
	CouponRate   float64  `yaml:"coupon_rate"` // anual, 0 = cupón cero
	DayCount     string   `yaml:"day_count"`   // ACT/365.25 | ACT/365F | ACT/360 | 30E/360
	Sign         string   `yaml:"sign"`        // entry-negative | entry-positive
	Lookup       string   `yaml:"lookup"`      // exact | nearest-before
	Holidays     []string `yaml:"holidays"`
	Workers      int      `yaml:"workers"` // 1 = secuencial
}

// MarketConfig contiene los inputs del pricer Monte Carlo.
type MarketConfig struct {
	Rate       float64 `yaml:"rate"`
	DivYield   float64 `yaml:"div_yield"`
	Vol        float64 `yaml:"vol"`
	Paths      int     `yaml:"paths"`
	Seed       uint64  `yaml:"seed"`
	Antithetic bool    `yaml:"antithetic"`
}

// DataConfig indica de dónde sale la serie de precios. URL tiene prioridad sobre Path.
type DataConfig struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

// StorageConfig controla dónde se persisten los runs.
type StorageConfig struct {
	DSN           string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
	RetentionDays int    `yaml:"retention_days"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}
	var cfg Config
	if root.Kind != 0 {
		if err := root.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("config.Load: decode YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg, presentKeys(&root))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// StartDate devuelve el inicio configurado (zero si no hay).
func (c *Config) StartDate() time.Time {
	t, _ := parseOptionalDate(c.Backtest.Start)
	return t
}

// EndDate devuelve el fin configurado (zero si no hay).
func (c *Config) EndDate() time.Time {
	t, _ := parseOptionalDate(c.Backtest.End)
	return t
}

// HolidayDates devuelve los feriados parseados; los inválidos ya fallaron en Load.
func (c *Config) HolidayDates() []time.Time {
	out := make([]time.Time, 0, len(c.Backtest.Holidays))
	for _, h := range c.Backtest.Holidays {
		if t, err := time.Parse(domain.DateLayout, h); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// Retention devuelve la retención de runs como time.Duration (0 = sin poda).
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ACN_DATA_PATH"); v != "" {
		cfg.Data.Path = v
	}
	if v := os.Getenv("ACN_DATA_URL"); v != "" {
		cfg.Data.URL = v
	}
	if v := os.Getenv("ACN_DB_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// keySet son las claves "seccion.clave" escritas en el YAML.
type keySet map[string]bool

// presentKeys recorre el documento y anota las claves de segundo nivel, para
// distinguir un cero explícito de una clave ausente.
func presentKeys(root *yaml.Node) keySet {
	keys := keySet{}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return keys
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return keys
	}
	for i := 0; i+1 < len(top.Content); i += 2 {
		section, body := top.Content[i].Value, top.Content[i+1]
		if body.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(body.Content); j += 2 {
			keys[section+"."+body.Content[j].Value] = true
		}
	}
	return keys
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Fechas, cupón, tasa y dividendo solo se rellenan si la clave no está en el
// YAML: "" y 0 son valores válidos para ellos.
func setDefaults(cfg *Config, set keySet) {
	b := &cfg.Backtest
	if b.Ticker == "" {
		b.Ticker = "SPX"
	}
	if b.Ccy == "" {
		b.Ccy = "USD"
	}
	if !set["backtest.start"] {
		b.Start = "2019-05-31"
	}
	if !set["backtest.end"] {
		b.End = "2024-04-30"
	}
	if b.PeriodMonths <= 0 {
		b.PeriodMonths = 3
	}
	if b.TenorMonths <= 0 {
		b.TenorMonths = 12
	}
	if b.StrikePct <= 0 {
		b.StrikePct = 0.8
	}
	if b.BarrierPct <= 0 {
		b.BarrierPct = 1.0
	}
	if !set["backtest.coupon_rate"] {
		b.CouponRate = 0.05
	}
	if b.DayCount == "" {
		b.DayCount = string(domain.ACT36525)
	}
	if b.Sign == "" {
		b.Sign = string(domain.EntryNegative)
	}
	if b.Lookup == "" {
		b.Lookup = string(domain.LookupExact)
	}
	if b.Workers <= 0 {
		b.Workers = 1
	}

	m := &cfg.Market
	if !set["market.rate"] {
		m.Rate = 0.03
	}
	if !set["market.div_yield"] {
		m.DivYield = 0.02
	}
	if m.Vol <= 0 {
		m.Vol = 0.30
	}
	if m.Paths <= 0 {
		m.Paths = 10_000
	}
	if m.Seed == 0 {
		m.Seed = 1
	}

	if cfg.Data.Path == "" && cfg.Data.URL == "" {
		cfg.Data.Path = "data/prices.csv"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "backtest.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate rechaza combinaciones que no tienen sentido antes de arrancar.
func (c *Config) validate() error {
	b := c.Backtest
	if b.TenorMonths%b.PeriodMonths != 0 {
		return fmt.Errorf("tenor_months %d is not a multiple of period_months %d", b.TenorMonths, b.PeriodMonths)
	}
	if b.CouponRate < 0 {
		return fmt.Errorf("coupon_rate %.4f is negative", b.CouponRate)
	}
	if _, err := domain.ParseDayCount(b.DayCount); err != nil {
		return err
	}
	if _, err := domain.ParseSignConvention(b.Sign); err != nil {
		return err
	}
	if _, err := domain.ParseLookupPolicy(b.Lookup); err != nil {
		return err
	}
	start, err := parseOptionalDate(b.Start)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	end, err := parseOptionalDate(b.End)
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("end %s before start %s", b.End, b.Start)
	}
	for _, h := range b.Holidays {
		if _, err := time.Parse(domain.DateLayout, h); err != nil {
			return fmt.Errorf("holiday %q: %w", h, err)
		}
	}
	return nil
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(domain.DateLayout, s)
}
