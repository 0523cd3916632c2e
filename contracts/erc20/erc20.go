// Package erc20 is a minimal binding for the ERC20 calls the settlement flow needs.
package erc20

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const ABI = `[
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}
]`

var parsedABI abi.ABI

func init() {
	var err error
	parsedABI, err = abi.JSON(strings.NewReader(ABI))
	if err != nil {
		panic(err)
	}
}

func ParsedABI() abi.ABI {
	return parsedABI
}

type Erc20 struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewErc20(address common.Address, backend bind.ContractBackend) *Erc20 {
	return &Erc20{
		address:  address,
		contract: bind.NewBoundContract(address, parsedABI, backend, backend, backend),
	}
}

func (e *Erc20) Address() common.Address {
	return e.address
}

func (e *Erc20) BalanceOf(opts *bind.CallOpts, account common.Address) (*big.Int, error) {
	var out []interface{}
	if err := e.contract.Call(opts, &out, "balanceOf", account); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (e *Erc20) Decimals(opts *bind.CallOpts) (uint8, error) {
	var out []interface{}
	if err := e.contract.Call(opts, &out, "decimals"); err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

func (e *Erc20) Symbol(opts *bind.CallOpts) (string, error) {
	var out []interface{}
	if err := e.contract.Call(opts, &out, "symbol"); err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// Transfer builds and signs a transfer call. With opts.NoSend set the signed
// transaction is returned without being submitted.
func (e *Erc20) Transfer(opts *bind.TransactOpts, to common.Address, amount *big.Int) (*types.Transaction, error) {
	return e.contract.Transact(opts, "transfer", to, amount)
}

// PackTransfer returns the calldata of transfer(to, amount).
func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return parsedABI.Pack("transfer", to, amount)
}

// UnpackTransfer decodes transfer calldata back into its arguments.
func UnpackTransfer(data []byte) (common.Address, *big.Int, error) {
	method, err := parsedABI.MethodById(data)
	if err != nil {
		return common.Address{}, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return common.Address{}, nil, err
	}
	return args[0].(common.Address), args[1].(*big.Int), nil
}
