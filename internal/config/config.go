package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Hardhat/Anvil development accounts #0..#3 (owner, user, dev, dao).
var defaultCheckKeys = []string{
	"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a",
	"7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6",
}

// Settings keeps all configuration options shared by the commands.
type Settings struct {
	RPCURL        string
	ChainID       string // empty means "ask the node"
	PrivateKeyHex string

	// pool setup sequence
	ContractAddress string
	SqrtPriceX96    string
	TickLower       int64
	TickUpper       int64
	AmountA         string
	AmountB         string
	TokenDecimals   int

	PollInterval time.Duration
	TxTimeout    time.Duration
	ListenFor    time.Duration

	LogLevel    string
	LogJSON     bool
	MetricsAddr string

	// fee history window printed before sending
	NetBlocks int
	NetPcts   []int

	// factory harness
	FactoryArtifact string
	CheckKeys       []string
	CreationCost    string
	CheckScenarios  []string
	CheckReport     string
}

// Load reads settings from environment supporting both UPPER_CASE and lower_case keys.
func Load() Settings {
	get := func(keys []string, def string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				return v
			}
		}
		return def
	}
	getInt64 := func(keys []string, def int64) int64 {
		s := get(keys, "")
		if s == "" {
			return def
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		return def
	}
	getDuration := func(keys []string, def time.Duration) time.Duration {
		s := get(keys, "")
		if s == "" {
			return def
		}
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Duration(n) * time.Second
		}
		return def
	}
	getBool := func(keys []string, def bool) bool {
		s := strings.ToLower(get(keys, ""))
		if s == "" {
			return def
		}
		return s == "1" || s == "true" || s == "yes" || s == "on"
	}

	st := Settings{}
	st.RPCURL = get([]string{"rpc_url", "RPC_URL"}, "https://public-node.testnet.rsk.co")
	st.ChainID = get([]string{"chain_id", "CHAIN_ID"}, "")
	st.PrivateKeyHex = get([]string{"private_key", "PRIVATE_KEY"}, "")

	st.ContractAddress = get([]string{"contract_address", "CONTRACT_ADDRESS"}, "0xCD329e33DD3713384d7042BDD2417a6D7d3C6aEC")
	st.SqrtPriceX96 = get([]string{"sqrt_price_x96", "SQRT_PRICE_X96"}, "79228162514264337593543950336")
	st.TickLower = getInt64([]string{"tick_lower", "TICK_LOWER"}, -887220)
	st.TickUpper = getInt64([]string{"tick_upper", "TICK_UPPER"}, 887220)
	st.AmountA = get([]string{"amount_a", "AMOUNT_A"}, "100")
	st.AmountB = get([]string{"amount_b", "AMOUNT_B"}, "100")
	st.TokenDecimals = int(getInt64([]string{"token_decimals", "TOKEN_DECIMALS"}, 18))

	st.PollInterval = getDuration([]string{"poll_interval", "POLL_INTERVAL"}, 4*time.Second)
	st.TxTimeout = getDuration([]string{"tx_timeout", "TX_TIMEOUT"}, 3*time.Minute)
	st.ListenFor = getDuration([]string{"listen_for", "LISTEN_FOR"}, 0)

	st.LogLevel = get([]string{"log_level", "LOG_LEVEL"}, "info")
	st.LogJSON = getBool([]string{"log_json", "LOG_JSON"}, false)
	st.MetricsAddr = get([]string{"metrics_addr", "METRICS_ADDR"}, "")

	st.NetBlocks = int(getInt64([]string{"netcheck_blocks", "NETCHECK_BLOCKS"}, 20))
	st.NetPcts = ParseCSVInts(get([]string{"netcheck_pcts", "NETCHECK_PCTS"}, ""), []int{50, 95, 99})

	st.FactoryArtifact = get([]string{"factory_artifact", "FACTORY_ARTIFACT"}, "artifacts/contracts/TokenFactory.sol/TokenFactory.json")
	st.CheckKeys = SplitCSV(get([]string{"check_keys", "CHECK_KEYS"}, strings.Join(defaultCheckKeys, ",")))
	st.CreationCost = get([]string{"creation_cost", "CREATION_COST"}, "0.0002")
	st.CheckScenarios = SplitCSV(get([]string{"check_scenarios", "CHECK_SCENARIOS"}, ""))
	st.CheckReport = get([]string{"check_report", "CHECK_REPORT"}, "")

	return st
}

// SplitCSV splits a comma separated list dropping empty items.
func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseCSVInts parses "a,b,c" into []int with defaults if empty/bad.
func ParseCSVInts(s string, def []int) []int {
	var out []int
	for _, p := range SplitCSV(s) {
		if v, err := strconv.Atoi(p); err == nil {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MaskHex hides the middle of a secret for printing.
func MaskHex(h string) string {
	h = strings.TrimSpace(h)
	if len(h) <= 10 {
		return "***"
	}
	return h[:6] + "…" + h[len(h)-4:]
}
