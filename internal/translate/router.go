package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pemistahl/lingua-go"

	wverrors "github.com/wikivec/wikivec/internal/errors"
)

const (
	// DefaultEndpoint is the public MinT translation service.
	DefaultEndpoint = "https://cxserver.wikimedia.org"

	// DefaultDestLang is the language the vector store embeds best.
	DefaultDestLang = "en"

	// DefaultTimeout bounds one translation request.
	DefaultTimeout = 10 * time.Second

	// DefaultMemoSize bounds the in-process translation memo.
	DefaultMemoSize = 1024
)

// tagPattern strips markup from the translation response.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Detector guesses the language of a text.
type Detector interface {
	// Detect returns an ISO 639-1 code and whether detection succeeded.
	Detect(text string) (string, bool)
}

// LinguaDetector detects languages with a statistical n-gram model.
// Build one per process; construction loads the language models.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

var _ Detector = (*LinguaDetector)(nil)

// NewLinguaDetector builds a detector over all supported languages.
func NewLinguaDetector() *LinguaDetector {
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithLowAccuracyMode().
			Build(),
	}
}

// Detect returns the lowercase ISO 639-1 code of the detected language.
func (d *LinguaDetector) Detect(text string) (string, bool) {
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	code := strings.ToLower(language.IsoCode639_1().String())
	if !DetectorSupported(code) {
		return "", false
	}
	return code, true
}

// Config configures a Router.
type Config struct {
	// Endpoint is the translation service base URL.
	Endpoint string

	// DestLang is the language to translate into.
	DestLang string

	// NativeLangs are the languages already embedded in the vector
	// store. Queries in these languages are never translated.
	NativeLangs []string

	// Detector supplies language detection when the caller omits the
	// source language. Required.
	Detector Detector

	// Timeout bounds one translation request.
	Timeout time.Duration

	// MemoSize bounds the translation memo. Zero means the default.
	MemoSize int

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client

	// Logger receives translation diagnostics.
	Logger *slog.Logger
}

// Router decides whether a query needs translation and performs it.
// Translation is best effort: every failure path returns the original
// text so the query always proceeds.
type Router struct {
	endpoint string
	dest     string
	native   map[string]struct{}
	detector Detector
	client   *http.Client
	memo     *lru.Cache[string, string]
	breaker  *wverrors.CircuitBreaker
	log      *slog.Logger
}

// NewRouter builds a Router from cfg. The Detector is required.
func NewRouter(cfg Config) (*Router, error) {
	if cfg.Detector == nil {
		return nil, fmt.Errorf("translate: detector is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.DestLang == "" {
		cfg.DestLang = DefaultDestLang
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MemoSize <= 0 {
		cfg.MemoSize = DefaultMemoSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	memo, err := lru.New[string, string](cfg.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("translate: create memo: %w", err)
	}

	return &Router{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		dest:     cfg.DestLang,
		native:   makeSet(cfg.NativeLangs),
		detector: cfg.Detector,
		client:   client,
		memo:     memo,
		breaker:  wverrors.NewCircuitBreaker("mint"),
		log:      cfg.Logger.With("component", "translate"),
	}, nil
}

// Translate returns text in the destination language when possible.
// When srcLang is empty the language is detected first. Native-language
// queries and queries MinT cannot handle come back unchanged without
// any network call, as does any query whose translation fails.
func (r *Router) Translate(ctx context.Context, text, srcLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	lang := srcLang
	if lang == "" {
		detected, ok := r.detector.Detect(text)
		if !ok {
			r.log.Debug("language detection inconclusive, skipping translation")
			return text, nil
		}
		lang = detected
	}

	if _, ok := r.native[lang]; ok {
		return text, nil
	}
	if lang == r.dest || !MintSupported(lang) {
		return text, nil
	}

	key := lang + "\x00" + text
	if cached, ok := r.memo.Get(key); ok {
		return cached, nil
	}

	if !r.breaker.Allow() {
		r.log.Debug("translation circuit open, using original text", "lang", lang)
		return text, nil
	}

	translated, err := r.callMinT(ctx, text, lang)
	if err != nil {
		r.breaker.RecordFailure()
		r.log.Warn("translation failed, using original text",
			"lang", lang,
			"error", err)
		return text, nil
	}
	r.breaker.RecordSuccess()

	r.memo.Add(key, translated)
	return translated, nil
}

// mintResponse is the translation service response envelope.
type mintResponse struct {
	Contents string `json:"contents"`
}

func (r *Router) callMinT(ctx context.Context, text, srcLang string) (string, error) {
	endpoint := fmt.Sprintf("%s/v2/translate/%s/%s/MinT", r.endpoint, srcLang, r.dest)

	form := url.Values{}
	form.Set("html", "<p>"+text+"</p>")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post translation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("translation service returned %d", resp.StatusCode)
	}

	var decoded mintResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode translation: %w", err)
	}
	if decoded.Contents == "" {
		return "", fmt.Errorf("translation response has no contents")
	}

	return tagPattern.ReplaceAllString(decoded.Contents, ""), nil
}
