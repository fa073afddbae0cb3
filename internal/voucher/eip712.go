package voucher

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

const domainType = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"

var domainTypeHash = crypto.Keccak256Hash([]byte(domainType))

// Field is one member of a typed struct, in declaration order.
type Field struct {
	Name string
	Type string
}

// Schema describes a flat EIP-712 struct. The schema name doubles as the
// signing domain name.
type Schema struct {
	Name    string
	Version string
	Fields  []Field
}

// EncodeType returns the canonical type string, e.g. "LandSale(address _wallet,...)".
func (s Schema) EncodeType() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('(')
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Type)
		b.WriteByte(' ')
		b.WriteString(f.Name)
	}
	b.WriteByte(')')
	return b.String()
}

func (s Schema) TypeHash() common.Hash {
	return crypto.Keccak256Hash([]byte(s.EncodeType()))
}

// HashStruct encodes values positionally against the schema fields.
func (s Schema) HashStruct(values ...any) (common.Hash, error) {
	if len(values) != len(s.Fields) {
		return common.Hash{}, fmt.Errorf("%s: expected %d values, got %d", s.Name, len(s.Fields), len(values))
	}

	th := s.TypeHash()
	buf := make([]byte, 0, 32*(len(values)+1))
	buf = append(buf, th.Bytes()...)
	for i, f := range s.Fields {
		word, err := encodeValue(f.Type, values[i])
		if err != nil {
			return common.Hash{}, fmt.Errorf("%s.%s: %w", s.Name, f.Name, err)
		}
		buf = append(buf, word...)
	}
	return crypto.Keccak256Hash(buf), nil
}

// Domain binds a digest to one consuming contract on one chain.
func (s Schema) Domain(chainID *big.Int, verifyingContract common.Address) Domain {
	return Domain{
		Name:              s.Name,
		Version:           s.Version,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
}

// Digest returns keccak256("\x19\x01" ‖ domainSeparator ‖ hashStruct(values)).
func (s Schema) Digest(domain Domain, values ...any) (common.Hash, error) {
	structHash, err := s.HashStruct(values...)
	if err != nil {
		return common.Hash{}, err
	}
	sep, err := domain.Separator()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, sep.Bytes(), structHash.Bytes()), nil
}

type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

func (d Domain) Separator() (common.Hash, error) {
	if d.ChainID == nil {
		return common.Hash{}, fmt.Errorf("domain %s: chain id is required", d.Name)
	}
	chainID, err := encodeValue("uint256", d.ChainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("domain %s: %w", d.Name, err)
	}
	return crypto.Keccak256Hash(
		domainTypeHash.Bytes(),
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		chainID,
		common.LeftPadBytes(d.VerifyingContract.Bytes(), 32),
	), nil
}

// encodeValue produces the 32-byte encodeData word of one atomic value.
func encodeValue(typ string, v any) ([]byte, error) {
	switch typ {
	case "address":
		addr, err := toAddress(v)
		if err != nil {
			return nil, err
		}
		return common.LeftPadBytes(addr.Bytes(), 32), nil
	case "bool":
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("bool: unexpected %T", v)
		}
		word := make([]byte, 32)
		if b {
			word[31] = 1
		}
		return word, nil
	case "string":
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("string: unexpected %T", v)
		}
		return crypto.Keccak256([]byte(s)), nil
	case "bytes":
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("bytes: unexpected %T", v)
		}
		return crypto.Keccak256(b), nil
	case "bytes32":
		switch b := v.(type) {
		case common.Hash:
			return b.Bytes(), nil
		case [32]byte:
			return b[:], nil
		default:
			return nil, fmt.Errorf("bytes32: unexpected %T", v)
		}
	}

	if bits, signed, ok := integerType(typ); ok {
		n, err := toBigInt(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", typ, err)
		}
		if err := checkRange(n, bits, signed); err != nil {
			return nil, fmt.Errorf("%s: %w", typ, err)
		}
		return math.U256Bytes(new(big.Int).Set(n)), nil
	}
	return nil, fmt.Errorf("unsupported type %q", typ)
}

func integerType(typ string) (bits int, signed bool, ok bool) {
	var rest string
	switch {
	case strings.HasPrefix(typ, "uint"):
		rest = strings.TrimPrefix(typ, "uint")
	case strings.HasPrefix(typ, "int"):
		rest, signed = strings.TrimPrefix(typ, "int"), true
	default:
		return 0, false, false
	}
	if rest == "" {
		return 256, signed, true
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 8 || n > 256 || n%8 != 0 {
		return 0, false, false
	}
	return n, signed, true
}

func checkRange(n *big.Int, bits int, signed bool) error {
	if !signed {
		if n.Sign() < 0 || n.BitLen() > bits {
			return fmt.Errorf("value %s out of range", n)
		}
		return nil
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
		return fmt.Errorf("value %s out of range", n)
	}
	return nil
}

func toBigInt(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return n, nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case int64:
		return big.NewInt(n), nil
	case int:
		return big.NewInt(int64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case string:
		b, ok := math.ParseBig256(n)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", n)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unexpected %T", v)
	}
}

func toAddress(v any) (common.Address, error) {
	switch a := v.(type) {
	case common.Address:
		return a, nil
	case *common.Address:
		if a == nil {
			return common.Address{}, fmt.Errorf("nil address")
		}
		return *a, nil
	case string:
		if !common.IsHexAddress(a) {
			return common.Address{}, fmt.Errorf("invalid address %q", a)
		}
		return common.HexToAddress(a), nil
	default:
		return common.Address{}, fmt.Errorf("address: unexpected %T", v)
	}
}
