package main

import (
	"fmt"
	"os"

	"github.com/abcfe/abcfe-metadata/app"
	"github.com/abcfe/abcfe-metadata/common/logger"
	"github.com/abcfe/abcfe-metadata/metadata"
	prt "github.com/abcfe/abcfe-metadata/protocol"
	"github.com/abcfe/abcfe-metadata/wallet"
	"github.com/spf13/cobra"
)

func metaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Save and load encrypted metadata documents",
	}

	cmd.AddCommand(metaSaveCmd())
	cmd.AddCommand(metaLoadCmd())
	cmd.AddCommand(metaAddressCmd())
	cmd.AddCommand(metaTypesCmd())
	cmd.AddCommand(remoteNodesCmd())

	return cmd
}

// unlockedService unlocks the wallet and returns a service backed by its seed
func unlockedService(application *app.App, verbose bool) (*metadata.Service, error) {
	if err := unlockWallet(application); err != nil {
		return nil, err
	}

	var opts []metadata.Option
	if verbose {
		opts = append(opts, metadata.WithStateObserver(func(t prt.EntryType, state metadata.SaveState) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", t, state)
		}))
	}
	return application.NewMetadataService(application.Wallet, opts...), nil
}

func metaSaveCmd() *cobra.Command {
	var (
		typeName string
		file     string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Encrypt, sign and store a JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := prt.ParseEntryType(typeName)
			if err != nil {
				return err
			}

			doc, err := readDocument(file)
			if err != nil {
				return err
			}

			application, err := loadApp()
			if err != nil {
				return err
			}
			svc, err := unlockedService(application, verbose)
			if err != nil {
				return err
			}
			defer application.Wallet.Lock()

			if err := svc.Save(cmd.Context(), t, doc); err != nil {
				logger.Error("metadata save failed: ", err)
				return err
			}

			fmt.Printf("Saved %s metadata\n", t)
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Entry type name or id")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON document file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print save states")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("file")
	return cmd
}

func metaLoadCmd() *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Fetch, verify and decrypt a stored document",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := prt.ParseEntryType(typeName)
			if err != nil {
				return err
			}

			application, err := loadApp()
			if err != nil {
				return err
			}
			svc, err := unlockedService(application, false)
			if err != nil {
				return err
			}
			defer application.Wallet.Lock()

			doc, found, err := svc.Load(cmd.Context(), t)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(os.Stderr, "No %s metadata stored\n", t)
				return nil
			}

			fmt.Println(doc.String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Entry type name or id")
	cmd.MarkFlagRequired("type")
	return cmd
}

func metaAddressCmd() *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "address",
		Short: "Print the store address of an entry type",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := prt.ParseEntryType(typeName)
			if err != nil {
				return err
			}

			application, err := loadApp()
			if err != nil {
				return err
			}
			svc, err := unlockedService(application, false)
			if err != nil {
				return err
			}
			defer application.Wallet.Lock()

			address, err := svc.Address(cmd.Context(), t)
			if err != nil {
				return err
			}
			fmt.Println(address)
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Entry type name or id")
	cmd.MarkFlagRequired("type")
	return cmd
}

func metaTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the known entry types",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Entry table version %d\n", prt.EntryTableVersion)
			for _, t := range prt.EntryTypes() {
				fmt.Printf("%4d  %s\n", int32(t), t)
			}
		},
	}
}

// remote-nodes stores the metadata purpose key under credentials-derived root
// entry, so a device that only knows the credentials can reach every entry.
func remoteNodesCmd() *cobra.Command {
	var guid, sharedKey string

	cmd := &cobra.Command{
		Use:   "remote-nodes",
		Short: "Share the metadata key through credentials",
	}
	cmd.PersistentFlags().StringVar(&guid, "guid", "", "Wallet GUID")
	cmd.PersistentFlags().StringVar(&sharedKey, "shared-key", "", "Wallet shared key")
	cmd.MarkPersistentFlagRequired("guid")
	cmd.MarkPersistentFlagRequired("shared-key")

	credentials := func() (wallet.CredentialsSeed, error) {
		password, err := readPassword("Credentials password: ")
		if err != nil {
			return wallet.CredentialsSeed{}, err
		}
		defer clear(password)
		return wallet.CredentialsSeed{GUID: guid, SharedKey: sharedKey, Password: string(password)}, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "push",
		Short: "Store this wallet's metadata key under the credentials root entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp()
			if err != nil {
				return err
			}
			svc, err := unlockedService(application, false)
			if err != nil {
				return err
			}
			defer application.Wallet.Lock()

			creds, err := credentials()
			if err != nil {
				return err
			}
			if err := svc.SaveRemoteNodes(cmd.Context(), creds); err != nil {
				return err
			}
			fmt.Println("Metadata key stored under credentials root entry")
			return nil
		},
	})

	var typeName string
	pull := &cobra.Command{
		Use:   "pull",
		Short: "Recover the metadata key from credentials and load --type",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := prt.ParseEntryType(typeName)
			if err != nil {
				return err
			}

			application, err := loadApp()
			if err != nil {
				return err
			}
			creds, err := credentials()
			if err != nil {
				return err
			}

			root := application.NewMetadataService(creds)
			nodes, found, err := root.LoadRemoteNodes(cmd.Context(), creds)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no metadata key stored for these credentials")
			}

			svc, err := application.NewMetadataServiceWithPurposeKey(nodes.Metadata)
			if err != nil {
				return err
			}
			doc, found, err := svc.Load(cmd.Context(), t)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(os.Stderr, "No %s metadata stored\n", t)
				return nil
			}
			fmt.Println(doc.String())
			return nil
		},
	}
	pull.Flags().StringVarP(&typeName, "type", "t", "", "Entry type name or id")
	pull.MarkFlagRequired("type")
	cmd.AddCommand(pull)

	return cmd
}

// stdin is kept for the password prompt, so documents come from a file
func readDocument(file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return string(data), nil
}
