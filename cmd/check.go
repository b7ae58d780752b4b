package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forensicsoft/go-fvde-core/internal/abort"
	"github.com/forensicsoft/go-fvde-core/internal/check"
	"github.com/forensicsoft/go-fvde-core/internal/device"
	"github.com/forensicsoft/go-fvde-core/internal/extentstore"
	"github.com/forensicsoft/go-fvde-core/internal/unlocker"
	"github.com/forensicsoft/go-fvde-core/internal/walker"
)

var (
	checkSources         []string
	checkOffset          uint64
	checkPassword        string
	checkRecovery        string
	checkRawKeyHex       string
	checkPlistPath       string
	checkVerbose         bool
	checkLookupSector    int64
	checkProcessingOrder string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report the allocation state of an unlocked volume",
	Long: `check walks an unlocked volume into the extent store and reports its
allocation state as human-readable text (default), a per-extent map, or
stable-schema JSON, selected via the persistent --output flag. It can also
resolve a single Linux sector to its FVDE block and containing extent via
--lookup-linux-sector.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck()
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringSliceVar(&checkSources, "source", nil, "source file(s) or block device(s), one per physical volume")
	checkCmd.Flags().Uint64Var(&checkOffset, "offset", 0, "byte offset of the volume header within the source")
	checkCmd.Flags().StringVar(&checkPassword, "password", "", "unlock password")
	checkCmd.Flags().StringVar(&checkRecovery, "recovery-password", "", "unlock recovery password")
	checkCmd.Flags().StringVar(&checkRawKeyHex, "raw-master-key", "", "raw master key as 32 hex characters")
	checkCmd.Flags().StringVar(&checkPlistPath, "encrypted-root-plist", "", "path to an EncryptedRoot plist")
	checkCmd.Flags().BoolVar(&checkVerbose, "verbose-map", false, "print every extent in allocation-map output instead of truncating")
	checkCmd.Flags().Int64Var(&checkLookupSector, "lookup-linux-sector", -1, "resolve a single 512-byte Linux sector number instead of printing a report")
	checkCmd.Flags().StringVar(&checkProcessingOrder, "processing-order", "ascending", "metadata processing order recorded in the JSON report (ascending, descending)")
	checkCmd.MarkFlagRequired("source")
}

func runCheck() error {
	log := rootLogger().WithName("check")

	pool, err := device.OpenPool(checkSources)
	if err != nil {
		return fmt.Errorf("opening source pool: %w", err)
	}
	defer pool.Close()

	strictChecksums := cfg != nil && cfg.StrictChecksums

	flag := abort.New()
	stop := abort.WireSignals(flag)
	defer stop()

	store := extentstore.New()
	w := walker.New(store, pool.Primary(), checkOffset, log, flag, strictChecksums)

	creds := unlocker.Credentials{
		Password:               checkPassword,
		RecoveryPassword:       checkRecovery,
		RawMasterKeyHex:        checkRawKeyHex,
		EncryptedRootPlistPath: checkPlistPath,
	}
	unl := unlocker.NotImplemented{}
	defer unl.Close()

	if err := w.Walk(unl, checkSources, creds); err != nil {
		return fmt.Errorf("walking volume: %w", err)
	}

	if checkLookupSector >= 0 {
		res, err := check.LookupLinuxSector(store, uint64(checkLookupSector))
		if err != nil {
			return fmt.Errorf("looking up sector %d: %w", checkLookupSector, err)
		}
		fmt.Println(res.String())
		return nil
	}

	switch outputFormat {
	case "json":
		proc := check.Processing{
			Order:                   checkProcessingOrder,
			TransactionsProcessed:   w.TransactionsProcessed(),
			MetadataBlocksProcessed: w.MetadataBlocksProcessed(),
		}
		report := check.BuildReport(store.State(), proc, nil, w.Warnings())
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "map":
		fmt.Print(check.AllocationMap(store.State(), checkVerbose))
	default:
		fmt.Print(check.AllocationSummary(store.State()))
	}
	return nil
}
