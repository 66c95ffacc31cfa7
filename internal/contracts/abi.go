package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// PoolDeployerABI is the Algebra test contract driven by the pool setup sequence.
const PoolDeployerABI = `[
{"anonymous":false,"inputs":[{"indexed":false,"internalType":"string","name":"message","type":"string"}],"name":"Debug","type":"event"},
{"anonymous":false,"inputs":[{"indexed":false,"internalType":"address","name":"tokenA","type":"address"},{"indexed":false,"internalType":"address","name":"tokenB","type":"address"}],"name":"TokenAddresses","type":"event"},
{"anonymous":false,"inputs":[{"indexed":false,"internalType":"address","name":"pool","type":"address"}],"name":"PoolCreated","type":"event"},
{"anonymous":false,"inputs":[{"indexed":false,"internalType":"uint128","name":"amountA","type":"uint128"},{"indexed":false,"internalType":"uint128","name":"amountB","type":"uint128"}],"name":"LiquidityAdded","type":"event"},
{"inputs":[{"internalType":"uint160","name":"sqrtPriceX96","type":"uint160"}],"name":"createAndInitializePool","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[],"name":"createTokens","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"int24","name":"tickLower","type":"int24"},{"internalType":"int24","name":"tickUpper","type":"int24"},{"internalType":"uint128","name":"amountA","type":"uint128"},{"internalType":"uint128","name":"amountB","type":"uint128"}],"name":"addLiquidity","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const TokenFactoryABI = `[
{"inputs":[{"internalType":"address","name":"_devAddress","type":"address"},{"internalType":"address","name":"_daoAddress","type":"address"}],"stateMutability":"nonpayable","type":"constructor"},
{"inputs":[{"internalType":"string","name":"name","type":"string"},{"internalType":"string","name":"symbol","type":"string"}],"name":"createToken","outputs":[],"stateMutability":"payable","type":"function"},
{"inputs":[],"name":"getTotalTokensCreated","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"getAllTokens","outputs":[{"components":[{"internalType":"address","name":"tokenAddress","type":"address"},{"internalType":"address","name":"liquidityPoolAddress","type":"address"}],"internalType":"struct TokenFactory.TokenInfo[]","name":"","type":"tuple[]"}],"stateMutability":"view","type":"function"}
]`

const LiquidityPoolABI = `[
{"inputs":[],"name":"getReserve","outputs":[{"internalType":"uint256","name":"tokenReserve","type":"uint256"},{"internalType":"uint256","name":"etherReserve","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"buyToken","outputs":[],"stateMutability":"payable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"tokenAmount","type":"uint256"}],"name":"sellToken","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const TokenABI = `[
{"inputs":[],"name":"name","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"symbol","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"totalSupply","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"address","name":"owner","type":"address"},{"internalType":"address","name":"spender","type":"address"}],"name":"allowance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"address","name":"spender","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"approve","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

var (
	poolDeployerABI  = mustParse(PoolDeployerABI)
	tokenFactoryABI  = mustParse(TokenFactoryABI)
	liquidityPoolABI = mustParse(LiquidityPoolABI)
	tokenABI         = mustParse(TokenABI)
)

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
