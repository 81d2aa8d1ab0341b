// txtable proves that a batch of legacy Ethereum transactions is laid out in a
// well-formed Transaction Table and that every transaction was signed by its
// declared caller.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func main() {
	var (
		cfg Config
		log zerolog.Logger
	)

	rootCmd := &cobra.Command{
		Use:   "txtable",
		Short: "Transaction Table circuit",
		Long: `Lays legacy transactions out into the fixed-capacity Transaction Table,
checks its invariants and authenticates every slot, natively and with a gnark
Groth16 circuit over BN254.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := LoadConfig()
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, &loaded); err != nil {
				return err
			}
			cfg = loaded
			log, err = newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			log.Debug().
				Int("max_txs", cfg.MaxTxs).
				Int("max_calldata", cfg.MaxCallDataBytes).
				Int("digest_capacity", cfg.DigestCapacity).
				Uint64("chain_id", cfg.ChainID).
				Str("version", Version).
				Msg("config loaded")
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.Int("max-txs", 0, "Transaction slots per table (TXTABLE_MAX_TXS)")
	pf.Int("max-calldata", 0, "Call-data rows per table (TXTABLE_MAX_CALLDATA_BYTES)")
	pf.Int("digest-capacity", 0, "Rows of the attested digest table (TXTABLE_DIGEST_CAPACITY)")
	pf.Uint64("chain-id", 0, "Chain id for EIP-155 signatures (TXTABLE_CHAIN_ID)")
	pf.String("log-level", "", "Log level (TXTABLE_LOG_LEVEL)")

	var prove bool
	demoCmd := &cobra.Command{
		Use:   "demo [scenario...]",
		Short: "Run the example scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			selected := scenarios()
			if len(args) > 0 {
				selected = selected[:0]
				for _, name := range args {
					sc, err := findScenario(name)
					if err != nil {
						return err
					}
					selected = append(selected, sc)
				}
			}
			var p *prover
			if prove {
				var err error
				if p, err = newProver(cfg, log); err != nil {
					return err
				}
			}
			failed := 0
			for _, sc := range selected {
				if err := runScenario(cfg, log, p, sc); err != nil {
					log.Error().Err(err).Str("scenario", sc.name).Msg("scenario failed")
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(selected))
			}
			return nil
		},
	}
	demoCmd.Flags().BoolVar(&prove, "prove", false, "Generate and verify Groth16 proofs instead of checking constraints")

	var out string
	compileCmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile the circuit and optionally write the R1CS",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newProver(cfg, log)
			if err != nil {
				return err
			}
			if out == "" {
				return nil
			}
			artifacts := map[string]io.WriterTo{"circuit.r1cs": p.cs, "proving.key": p.pk, "verifying.key": p.vk}
			for name, v := range artifacts {
				n, err := writeArtifact(out, name, v)
				if err != nil {
					return err
				}
				log.Info().Str("file", filepath.Join(out, name)).Int64("bytes", n).Msg("artifact written")
			}
			return nil
		},
	}
	compileCmd.Flags().StringVar(&out, "out", "", "Directory for the R1CS and Groth16 keys")

	var scenarioName string
	proveCmd := &cobra.Command{
		Use:   "prove",
		Short: "Prove one scenario and write the proof",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := findScenario(scenarioName)
			if err != nil {
				return err
			}
			if sc.wantErr != nil {
				return fmt.Errorf("scenario %s is not provable", sc.name)
			}
			txs, err := sc.build(cfg.Params().ChainID)
			if err != nil {
				return err
			}
			inst, err := prepare(cfg, log, txs)
			if err != nil {
				return err
			}
			if inst.authErr != nil {
				return inst.authErr
			}
			p, err := newProver(cfg, log)
			if err != nil {
				return err
			}
			proof, err := execute(cfg, log, p, inst.assignment)
			if err != nil {
				return err
			}
			if out == "" {
				return nil
			}
			if _, err := writeArtifact(out, "proof.bin", proof); err != nil {
				return err
			}
			if _, err := writeArtifact(out, "verifying.key", p.vk); err != nil {
				return err
			}
			log.Info().Str("dir", out).Str("at", getTimeStamp()).Msg("proof written")
			return nil
		},
	}
	proveCmd.Flags().StringVar(&scenarioName, "scenario", "transfers", "Scenario to prove")
	proveCmd.Flags().StringVar(&out, "out", "", "Directory for proof.bin and verifying.key")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("txtable %s (commit %s, built %s)\n", Version, Commit, BuildTime)
		},
	}

	rootCmd.AddCommand(demoCmd, compileCmd, proveCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// applyFlags overrides cfg with every persistent flag set on the command
// line, then revalidates.
func applyFlags(cmd *cobra.Command, cfg *Config) error {
	flags := cmd.Flags()
	var err error
	if flags.Changed("max-txs") {
		cfg.MaxTxs, err = flags.GetInt("max-txs")
	}
	if err == nil && flags.Changed("max-calldata") {
		cfg.MaxCallDataBytes, err = flags.GetInt("max-calldata")
	}
	if err == nil && flags.Changed("digest-capacity") {
		cfg.DigestCapacity, err = flags.GetInt("digest-capacity")
	}
	if err == nil && flags.Changed("chain-id") {
		cfg.ChainID, err = flags.GetUint64("chain-id")
	}
	if err == nil && flags.Changed("log-level") {
		cfg.LogLevel, err = flags.GetString("log-level")
	}
	if err != nil {
		return err
	}
	return cfg.Validate()
}
