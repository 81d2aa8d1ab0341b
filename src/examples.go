// Demo scenarios: each builds a batch of signed legacy transactions, lays it
// out, authenticates it natively and then checks or proves the circuit.
package main

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"txtable-circuit/circuit"
	"txtable-circuit/txtable"
)

var scenarioKeys = []string{
	"1ab2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2",
	"d2b651f6682d36d83a15039a831e5a619b48f9a3f25603f7e346f3be8f45c713",
	"2286b7bf48a97957770a5d2f8e1329128f83c07a0d4b851b238116541f714930",
}

var (
	stablecoin  = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	teamWallet  = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	lendingPool = common.HexToAddress("0x7d2768dE32b0b80b7a3454c06BdAc94A69DDc7A9")
)

// scenario is one demo batch. wantErr is the sentinel native authentication
// must report, nil for an honest batch.
type scenario struct {
	name    string
	build   func(chainID *big.Int) ([]txtable.Transaction, error)
	wantErr error
}

func scenarios() []scenario {
	return []scenario{
		{name: "transfers", build: buildTransfers},
		{name: "contract_creation", build: buildContractCreation},
		{name: "homestead_send", build: buildHomesteadSend},
		{name: "forged_caller", build: buildForgedCaller, wantErr: txtable.ErrAddressMismatch},
	}
}

func findScenario(name string) (scenario, error) {
	for _, sc := range scenarios() {
		if sc.name == name {
			return sc, nil
		}
	}
	return scenario{}, fmt.Errorf("unknown scenario %q", name)
}

func scenarioKey(i int) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(scenarioKeys[i%len(scenarioKeys)])
}

func signLegacy(keyIdx int, signer types.Signer, chainID *big.Int, tx *types.LegacyTx) (txtable.Transaction, error) {
	key, err := scenarioKey(keyIdx)
	if err != nil {
		return txtable.Transaction{}, err
	}
	signed, err := types.SignTx(types.NewTx(tx), signer, key)
	if err != nil {
		return txtable.Transaction{}, fmt.Errorf("sign: %w", err)
	}
	return txtable.FromEthTransaction(signed, chainID)
}

func buildTransfers(chainID *big.Int) ([]txtable.Transaction, error) {
	signer := types.NewEIP155Signer(chainID)
	var txs []txtable.Transaction
	for i, amount := range []int64{1_000_000, 250_000} {
		tx, err := signLegacy(i, signer, chainID, &types.LegacyTx{
			Nonce:    uint64(i),
			GasPrice: big.NewInt(2_000_000_000),
			Gas:      60_000,
			To:       &stablecoin,
			Value:    new(big.Int),
			Data:     erc20Transfer(teamWallet, big.NewInt(amount)),
		})
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func buildContractCreation(chainID *big.Int) ([]txtable.Transaction, error) {
	tx, err := signLegacy(2, types.NewEIP155Signer(chainID), chainID, &types.LegacyTx{
		Nonce:    7,
		GasPrice: big.NewInt(1_500_000_000),
		Gas:      120_000,
		Value:    big.NewInt(0),
		Data:     common.FromHex("0x6080604052348015600f57600080fd5b50"),
	})
	if err != nil {
		return nil, err
	}
	return []txtable.Transaction{tx}, nil
}

func buildHomesteadSend(chainID *big.Int) ([]txtable.Transaction, error) {
	tx, err := signLegacy(1, types.HomesteadSigner{}, chainID, &types.LegacyTx{
		Nonce:    1,
		GasPrice: big.NewInt(1_000_000_000),
		Gas:      21_000,
		To:       &lendingPool,
		Value:    big.NewInt(1e17),
	})
	if err != nil {
		return nil, err
	}
	return []txtable.Transaction{tx}, nil
}

// buildForgedCaller declares a caller other than the signer.
func buildForgedCaller(chainID *big.Int) ([]txtable.Transaction, error) {
	txs, err := buildTransfers(chainID)
	if err != nil {
		return nil, err
	}
	victim, err := scenarioKey(2)
	if err != nil {
		return nil, err
	}
	txs[1].From = crypto.PubkeyToAddress(victim.PublicKey)
	return txs, nil
}

// instance is a prepared proof instance.
type instance struct {
	table      *txtable.Table
	witnesses  []txtable.SlotWitness
	digests    []txtable.DigestRow
	authErr    error
	assignment *circuit.TxTableCircuit
}

// prepare lays txs out, checks the table, attests every public key digest
// and authenticates natively. An authentication failure is recorded on the
// instance, not returned, so the circuit can be shown to reject it too.
func prepare(cfg Config, log zerolog.Logger, txs []txtable.Transaction) (*instance, error) {
	params := cfg.Params()
	hasher := txtable.LegacySignHasher{ChainID: params.ChainID}
	challenge := deriveChallenge(txs)

	table, err := txtable.NewBuilder(params, challenge,
		txtable.WithLogger(log),
		txtable.WithSignHasher(hasher),
	).Build(txs)
	if err != nil {
		return nil, fmt.Errorf("build table: %w", err)
	}
	if err := txtable.Check(table); err != nil {
		return nil, fmt.Errorf("check table: %w", err)
	}
	witnesses, err := txtable.Witnesses(txs, params, hasher)
	if err != nil {
		return nil, fmt.Errorf("witnesses: %w", err)
	}
	digests := txtable.NewKeccakDigestTable(challenge)
	if err := txtable.AttestPublicKeys(digests, witnesses); err != nil {
		return nil, fmt.Errorf("attest: %w", err)
	}
	authErr := txtable.NewAuthenticator(table, digests, log).AuthenticateAll(witnesses)

	assignment, err := circuit.Assign(table, witnesses, digests.Rows(), cfg.DigestCapacity)
	if err != nil {
		return nil, fmt.Errorf("assign: %w", err)
	}
	return &instance{
		table:      table,
		witnesses:  witnesses,
		digests:    digests.Rows(),
		authErr:    authErr,
		assignment: assignment,
	}, nil
}

// prover holds the compiled circuit and Groth16 keys for one Config.
type prover struct {
	cs constraint.ConstraintSystem
	pk groth16.ProvingKey
	vk groth16.VerifyingKey
}

func newProver(cfg Config, log zerolog.Logger) (*prover, error) {
	log.Info().Msg("compiling circuit")
	cs, err := circuit.Compile(cfg.Params(), cfg.DigestCapacity)
	if err != nil {
		return nil, fmt.Errorf("circuit compilation failed: %w", err)
	}
	log.Info().
		Int("constraints", cs.GetNbConstraints()).
		Int("public", cs.GetNbPublicVariables()).
		Msg("performing trusted setup (Groth16)")
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return nil, fmt.Errorf("trusted setup failed: %w", err)
	}
	return &prover{cs: cs, pk: pk, vk: vk}, nil
}

// execute proves and verifies an assignment. Without a prover only the
// constraints are checked.
func execute(cfg Config, log zerolog.Logger, p *prover, assignment *circuit.TxTableCircuit) (groth16.Proof, error) {
	if p == nil {
		return nil, checkCircuitLogic(cfg, log, assignment)
	}

	log.Debug().Msg("creating witness")
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("witness creation failed: %w", err)
	}
	publicWitness, err := witness.Public()
	if err != nil {
		return nil, fmt.Errorf("public witness creation failed: %w", err)
	}

	log.Info().Msg("generating proof")
	proof, err := groth16.Prove(p.cs, p.pk, witness)
	if err != nil {
		return nil, fmt.Errorf("proof generation failed: %w", err)
	}
	if err := groth16.Verify(proof, p.vk, publicWitness); err != nil {
		return nil, fmt.Errorf("verification failed: %w", err)
	}
	log.Info().Msg("proof verified")
	return proof, nil
}

// checkCircuitLogic is the fast-mode checker.
func checkCircuitLogic(cfg Config, log zerolog.Logger, assignment *circuit.TxTableCircuit) error {
	log.Debug().Msg("checking circuit constraints")
	shape := circuit.NewTxTableCircuit(cfg.Params(), cfg.DigestCapacity)
	return test.IsSolved(shape, assignment, ecc.BN254.ScalarField())
}

// runScenario reports an error when a scenario's outcome differs from what
// it expects, natively or in the circuit.
func runScenario(cfg Config, log zerolog.Logger, p *prover, sc scenario) error {
	log = log.With().Str("scenario", sc.name).Logger()
	txs, err := sc.build(cfg.Params().ChainID)
	if err != nil {
		return err
	}
	inst, err := prepare(cfg, log, txs)
	if err != nil {
		return err
	}

	if sc.wantErr != nil {
		if !errors.Is(inst.authErr, sc.wantErr) {
			return fmt.Errorf("%s: native authentication returned %v, want %v", sc.name, inst.authErr, sc.wantErr)
		}
		if err := checkCircuitLogic(cfg, log, inst.assignment); err == nil {
			return fmt.Errorf("%s: circuit accepted a rejected batch", sc.name)
		}
		log.Info().Err(inst.authErr).Msg("rejected as expected")
		return nil
	}
	if inst.authErr != nil {
		return fmt.Errorf("%s: %w", sc.name, inst.authErr)
	}
	if _, err := execute(cfg, log, p, inst.assignment); err != nil {
		return fmt.Errorf("%s: %w", sc.name, err)
	}
	log.Info().
		Int("txs", inst.table.RealTxs()).
		Int("calldata", inst.table.CallDataUsed()).
		Int("digests", len(inst.digests)).
		Msg("passed")
	return nil
}
