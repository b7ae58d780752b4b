package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forensicsoft/go-fvde-core/internal/dmsetup"
	"github.com/forensicsoft/go-fvde-core/internal/keyring"
	"github.com/forensicsoft/go-fvde-core/internal/unlocker"
)

var (
	dmsetupSources    []string
	dmsetupOffset     uint64
	dmsetupPassword   string
	dmsetupRecovery   string
	dmsetupRawKeyHex  string
	dmsetupPlistPath  string
	dmsetupMapperName string
	dmsetupShell      bool
	dmsetupInjectKey  bool
	dmsetupKeyringID  string
)

var dmsetupCmd = &cobra.Command{
	Use:   "dmsetup",
	Short: "Emit a device-mapper crypt table for each unlocked logical volume",
	Long: `dmsetup derives per-logical-volume AES-XTS keys via an Unlocker and emits
one Linux device-mapper "crypt" table line per logical volume, optionally
injecting the key material into the kernel keyring. The table line never
contains key material; it references the key by keyring description.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDmsetup(cmd)
	},
}

func init() {
	rootCmd.AddCommand(dmsetupCmd)

	dmsetupCmd.Flags().StringSliceVar(&dmsetupSources, "source", nil, "source file(s) or block device(s), one per physical volume")
	dmsetupCmd.Flags().Uint64Var(&dmsetupOffset, "offset", 0, "byte offset of the volume header within the source")
	dmsetupCmd.Flags().StringVar(&dmsetupPassword, "password", "", "unlock password")
	dmsetupCmd.Flags().StringVar(&dmsetupRecovery, "recovery-password", "", "unlock recovery password")
	dmsetupCmd.Flags().StringVar(&dmsetupRawKeyHex, "raw-master-key", "", "raw master key as 32 hex characters")
	dmsetupCmd.Flags().StringVar(&dmsetupPlistPath, "encrypted-root-plist", "", "path to an EncryptedRoot plist")
	dmsetupCmd.Flags().StringVar(&dmsetupMapperName, "mapper-name", "", "mapper device base name (defaults to the logical-volume name, else \"fvde\")")
	dmsetupCmd.Flags().BoolVar(&dmsetupShell, "shell", false, "wrap each line as an \"echo ... | dmsetup create\" command")
	dmsetupCmd.Flags().BoolVar(&dmsetupInjectKey, "inject-key", false, "insert key material into the kernel keyring under the description the table line references")
	dmsetupCmd.Flags().StringVar(&dmsetupKeyringID, "keyring", "@s", "target keyring: @s, @u, @us, or a numeric key-serial ID")
	dmsetupCmd.MarkFlagRequired("source")
}

func runDmsetup(cmd *cobra.Command) error {
	log := rootLogger().WithName("dmsetup")
	mapperNameSet := cmd.Flags().Changed("mapper-name")

	creds := unlocker.Credentials{
		Password:               dmsetupPassword,
		RecoveryPassword:       dmsetupRecovery,
		RawMasterKeyHex:        dmsetupRawKeyHex,
		EncryptedRootPlistPath: dmsetupPlistPath,
	}

	unl := unlocker.NotImplemented{}
	_, lvInfos, err := unl.Open(dmsetupSources, dmsetupOffset, creds)
	if err != nil {
		return fmt.Errorf("unlocking volume: %w", err)
	}
	defer unl.Close()

	primarySource := dmsetupSources[0]

	for i, lv := range lvInfos {
		defer lv.ZeroKeys()

		if lv.IsLocked {
			log.Info("skipping still-locked logical volume", "index", i)
			continue
		}

		entry := dmsetup.Entry{
			UUID:              lv.Identifier,
			SizeBytes:         lv.SizeBytes,
			SourcePath:        primarySource,
			VolumeOffsetBytes: dmsetupOffset,
			Name:              lv.UTF8Name,
		}
		line := dmsetup.TableLine(entry)

		if dmsetupInjectKey {
			payload := keyring.Payload(lv.VolumeMasterKey, lv.VolumeTweakKey)
			if _, err := keyring.Insert(lv.Identifier, payload, dmsetupKeyringID); err != nil {
				return fmt.Errorf("inserting key for logical volume %d: %w", i, err)
			}
			log.Info("inserted key into kernel keyring", "index", i, "description", keyring.Description(lv.Identifier))
		}

		mapperName := dmsetupMapperName
		if !mapperNameSet {
			mapperName = dmsetup.MapperName(lv.UTF8Name)
		}

		if dmsetupShell {
			fmt.Println(dmsetup.ShellCommand(line, mapperName, i+1))
		} else {
			fmt.Println(line)
		}
	}

	return nil
}
