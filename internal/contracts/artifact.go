package contracts

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// Artifact is compiled contract output as written by Hardhat or Foundry.
type Artifact struct {
	ContractName string
	ABI          *abi.ABI // nil when the file carries no abi
	Bytecode     []byte
}

type artifactFile struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

// LoadArtifact reads a Hardhat ("bytecode": "0x…") or Foundry
// ("bytecode": {"object": "0x…"}) artifact.
func LoadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read artifact")
	}
	return ParseArtifact(raw)
}

func ParseArtifact(raw []byte) (*Artifact, error) {
	var f artifactFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(err, "decode artifact")
	}
	code, err := decodeBytecode(f.Bytecode)
	if err != nil {
		return nil, err
	}
	a := &Artifact{ContractName: f.ContractName, Bytecode: code}
	if len(bytes.TrimSpace(f.ABI)) > 0 && string(bytes.TrimSpace(f.ABI)) != "null" {
		parsed, err := abi.JSON(bytes.NewReader(f.ABI))
		if err != nil {
			return nil, errors.Wrap(err, "artifact abi")
		}
		a.ABI = &parsed
	}
	return a, nil
}

func decodeBytecode(raw json.RawMessage) ([]byte, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var obj struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, errors.New("artifact bytecode is neither a string nor an object")
		}
		s = obj.Object
	}
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	if s == "0x" {
		return nil, errors.New("artifact has empty bytecode (abstract contract or interface?)")
	}
	code, err := hexutil.Decode(s)
	if err != nil {
		return nil, errors.Wrap(err, "artifact bytecode")
	}
	return code, nil
}

// RequireMethods checks that the artifact's abi, when present, exposes every method.
func (a *Artifact) RequireMethods(names ...string) error {
	if a.ABI == nil {
		return nil
	}
	var missing []string
	for _, n := range names {
		if _, ok := a.ABI.Methods[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("artifact %s lacks methods: %s", a.ContractName, strings.Join(missing, ", "))
	}
	return nil
}

// RequireTokenFactory checks the artifact against the factory surface the harness drives.
func (a *Artifact) RequireTokenFactory() error {
	names := make([]string, 0, len(tokenFactoryABI.Methods))
	for n := range tokenFactoryABI.Methods {
		names = append(names, n)
	}
	return a.RequireMethods(names...)
}
