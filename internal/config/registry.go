package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml/v2"
	"github.com/sahilm/fuzzy"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

//go:embed ecosystem.toml
var defaultRegistry []byte

var tokenIDPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// TokenConfig is one ecosystem member: its tax model and reward relationships.
type TokenConfig struct {
	ID           domain.TokenID `toml:"id"`
	Name         string         `toml:"name"`
	Address      string         `toml:"address"`
	TaxRate      float64        `toml:"tax_rate"`
	BuyTax       *float64       `toml:"buy_tax,omitempty"`
	DailyROI     float64        `toml:"daily_roi"`
	MarketCapUSD float64        `toml:"market_cap_usd,omitempty"`
	Rewards      []string       `toml:"rewards"`
	Notes        string         `toml:"notes"`
}

// WalletConfig is a named wallet, optionally a project wallet of Token.
type WalletConfig struct {
	Name    string         `toml:"name"`
	Address string         `toml:"address"`
	Token   domain.TokenID `toml:"token,omitempty"`
}

type registryFile struct {
	Tokens  []TokenConfig  `toml:"tokens"`
	Wallets []WalletConfig `toml:"wallets"`
}

// Registry is the validated token/wallet configuration. Tokens keep file order.
type Registry struct {
	tokens  []TokenConfig
	byID    map[domain.TokenID]int
	wallets []WalletConfig
	byName  map[string]int
}

// LoadRegistry reads a TOML registry from path, or the embedded default
// ecosystem profile when path is empty.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return ParseRegistry(bytes.NewReader(defaultRegistry))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	defer f.Close()
	return ParseRegistry(f)
}

// ParseRegistry decodes and validates a registry. Unknown keys, malformed ids,
// out-of-range rates, bad addresses and wallets bound to unknown tokens are
// rejected before any evaluation runs.
func ParseRegistry(r io.Reader) (*Registry, error) {
	var file registryFile
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, &domain.ConfigError{Kind: domain.ConfigKindRegistry, ID: "registry", Reason: err.Error()}
	}

	reg := &Registry{
		byID:   make(map[domain.TokenID]int, len(file.Tokens)),
		byName: make(map[string]int, len(file.Wallets)),
	}

	for _, t := range file.Tokens {
		if err := validateToken(t); err != nil {
			return nil, err
		}
		if _, dup := reg.byID[t.ID]; dup {
			return nil, registryError(string(t.ID), "duplicate token id")
		}
		if t.Address != "" {
			t.Address = common.HexToAddress(t.Address).Hex()
		}
		reg.byID[t.ID] = len(reg.tokens)
		reg.tokens = append(reg.tokens, t)
	}

	// Every token contract is monitored as a project wallet of its token.
	for _, t := range reg.tokens {
		if t.Address == "" {
			continue
		}
		w := WalletConfig{Name: ContractWalletName(t.ID), Address: t.Address, Token: t.ID}
		reg.byName[w.Name] = len(reg.wallets)
		reg.wallets = append(reg.wallets, w)
	}

	for _, w := range file.Wallets {
		if w.Name == "" {
			return nil, registryError(w.Address, "wallet without name")
		}
		if !common.IsHexAddress(w.Address) {
			return nil, registryError(w.Name, fmt.Sprintf("invalid wallet address %q", w.Address))
		}
		if w.Token != "" {
			if _, ok := reg.byID[w.Token]; !ok {
				return nil, registryError(w.Name, fmt.Sprintf("wallet references unknown token %q", w.Token))
			}
		}
		if _, dup := reg.byName[w.Name]; dup {
			return nil, registryError(w.Name, "duplicate wallet name")
		}
		w.Address = common.HexToAddress(w.Address).Hex()
		reg.byName[w.Name] = len(reg.wallets)
		reg.wallets = append(reg.wallets, w)
	}

	return reg, nil
}

func validateToken(t TokenConfig) error {
	id := string(t.ID)
	switch {
	case !tokenIDPattern.MatchString(id):
		return registryError(id, "token id must match [a-z0-9_]+")
	case t.TaxRate < 0 || t.TaxRate > 1:
		return registryError(id, fmt.Sprintf("tax_rate %v outside [0,1]", t.TaxRate))
	case t.DailyROI < 0 || t.DailyROI > 1:
		return registryError(id, fmt.Sprintf("daily_roi %v outside [0,1]", t.DailyROI))
	case t.BuyTax != nil && (*t.BuyTax < 0 || *t.BuyTax > 1):
		return registryError(id, fmt.Sprintf("buy_tax %v outside [0,1]", *t.BuyTax))
	case t.MarketCapUSD < 0:
		return registryError(id, "market_cap_usd must not be negative")
	case t.Address != "" && !common.IsHexAddress(t.Address):
		return registryError(id, fmt.Sprintf("invalid contract address %q", t.Address))
	}
	return nil
}

func registryError(id, reason string) error {
	return &domain.ConfigError{Kind: domain.ConfigKindRegistry, ID: id, Reason: reason}
}

// Tokens returns all tokens in registry order.
func (r *Registry) Tokens() []TokenConfig {
	out := make([]TokenConfig, len(r.tokens))
	copy(out, r.tokens)
	return out
}

func (r *Registry) TokenIDs() []domain.TokenID {
	ids := make([]domain.TokenID, len(r.tokens))
	for i, t := range r.tokens {
		ids[i] = t.ID
	}
	return ids
}

// Token resolves an id, returning a *domain.ConfigError with a suggestion when
// the id is unknown.
func (r *Registry) Token(id domain.TokenID) (TokenConfig, error) {
	if i, ok := r.byID[domain.TokenID(strings.ToLower(string(id)))]; ok {
		return r.tokens[i], nil
	}
	candidates := make([]string, len(r.tokens))
	for i, t := range r.tokens {
		candidates[i] = string(t.ID)
	}
	return TokenConfig{}, &domain.ConfigError{
		Kind:       domain.ConfigKindToken,
		ID:         string(id),
		Reason:     "not in ecosystem registry",
		Suggestion: suggest(string(id), candidates),
	}
}

// ResolveTokens validates every id up front so that a batch run never starts
// with an unknown member.
func (r *Registry) ResolveTokens(ids []domain.TokenID) ([]TokenConfig, error) {
	out := make([]TokenConfig, 0, len(ids))
	for _, id := range ids {
		t, err := r.Token(id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ContractWalletName is the wallet name under which a token contract is
// registered.
func ContractWalletName(id domain.TokenID) string {
	return string(id) + "_contract"
}

// Wallets returns contract wallets in token order, then declared wallets in
// file order.
func (r *Registry) Wallets() []WalletConfig {
	out := make([]WalletConfig, len(r.wallets))
	copy(out, r.wallets)
	return out
}

// Wallet looks up a named wallet.
func (r *Registry) Wallet(name string) (WalletConfig, bool) {
	i, ok := r.byName[name]
	if !ok {
		return WalletConfig{}, false
	}
	return r.wallets[i], true
}

// WalletNames lists wallet names, sorted.
func (r *Registry) WalletNames() []string {
	names := make([]string, 0, len(r.wallets))
	for _, w := range r.wallets {
		names = append(names, w.Name)
	}
	sort.Strings(names)
	return names
}

// SuggestWallet returns the closest wallet name to name, or "".
func (r *Registry) SuggestWallet(name string) string {
	return suggest(name, r.WalletNames())
}

// ProjectWallets lists the wallets that collect tax for a token: the token
// contract first, then every declared wallet assigned to it.
func (r *Registry) ProjectWallets(id domain.TokenID) []domain.WalletRef {
	t, err := r.Token(id)
	if err != nil {
		return nil
	}
	var refs []domain.WalletRef
	for _, w := range r.wallets {
		if w.Token == t.ID {
			refs = append(refs, domain.WalletRef{Name: w.Name, Address: w.Address})
		}
	}
	return refs
}

func suggest(pattern string, candidates []string) string {
	if pattern == "" || len(candidates) == 0 {
		return ""
	}
	matches := fuzzy.Find(strings.ToLower(pattern), candidates)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
