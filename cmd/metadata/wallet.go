package main

import (
	"fmt"

	"github.com/abcfe/abcfe-metadata/app"
	prt "github.com/abcfe/abcfe-metadata/protocol"
	"github.com/abcfe/abcfe-metadata/wallet"
	"github.com/spf13/cobra"
)

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet management commands",
		Long:  `Commands for managing the mnemonic wallet whose seed secures the metadata.`,
	}

	cmd.AddCommand(walletCreateCmd())
	cmd.AddCommand(walletRestoreCmd())
	cmd.AddCommand(walletShowAddressCmd())

	return cmd
}

// Create new wallet
func walletCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new wallet with mnemonic",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp()
			if err != nil {
				return err
			}
			wm := application.Wallet

			mnemonicWallet, err := wm.CreateWallet()
			if err != nil {
				return fmt.Errorf("failed to create wallet: %w", err)
			}

			if err := saveWithNewPassword(wm); err != nil {
				return err
			}

			fmt.Println("=== New Wallet Created ===")
			fmt.Println("")
			fmt.Println("IMPORTANT: Write down your mnemonic phrase and keep it safe!")
			fmt.Println("If you lose it, you will lose access to your metadata forever.")
			fmt.Println("")
			fmt.Printf("Mnemonic: %s\n", mnemonicWallet.Mnemonic)
			fmt.Println("")
			fmt.Printf("Wallet saved to: %s\n", wm.WalletFile())
			return nil
		},
	}
}

// Restore wallet from mnemonic
func walletRestoreCmd() *cobra.Command {
	var mnemonic string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore wallet from mnemonic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mnemonic == "" {
				return fmt.Errorf("please provide a mnemonic phrase with --mnemonic flag")
			}

			application, err := loadApp()
			if err != nil {
				return err
			}
			wm := application.Wallet

			if wm.Exists() {
				fmt.Println("Wallet already exists at:", wm.WalletFile())
				fmt.Println("Please delete the existing wallet first if you want to restore.")
				return nil
			}

			if _, err := wm.RestoreWallet(mnemonic); err != nil {
				return fmt.Errorf("failed to restore wallet: %w", err)
			}

			if err := saveWithNewPassword(wm); err != nil {
				return err
			}

			fmt.Println("=== Wallet Restored ===")
			fmt.Printf("Wallet saved to: %s\n", wm.WalletFile())
			return nil
		},
	}

	cmd.Flags().StringVarP(&mnemonic, "mnemonic", "m", "", "Mnemonic phrase to restore")
	return cmd
}

// Show metadata address
func walletShowAddressCmd() *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "show-address",
		Short: "Show the root metadata address, or the address of --type",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp()
			if err != nil {
				return err
			}

			if typeName == "" {
				address, err := application.Wallet.StoredAddress()
				if err != nil {
					return fmt.Errorf("failed to read wallet: %w", err)
				}
				fmt.Printf("Root address: %s\n", address)
				return nil
			}

			t, err := prt.ParseEntryType(typeName)
			if err != nil {
				return err
			}
			if err := unlockWallet(application); err != nil {
				return err
			}
			defer application.Wallet.Lock()

			address, err := application.Wallet.Address(t)
			if err != nil {
				return err
			}
			fmt.Printf("%s address: %s\n", t, address)
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Entry type name or id")
	return cmd
}

func saveWithNewPassword(wm *wallet.WalletManager) error {
	password, err := readNewPassword()
	if err != nil {
		return err
	}
	defer clear(password)

	if err := wm.SaveWallet(password); err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}

func unlockWallet(application *app.App) error {
	password, err := readPassword("Wallet password: ")
	if err != nil {
		return err
	}
	defer clear(password)

	if _, err := application.Wallet.LoadWallet(password); err != nil {
		return fmt.Errorf("failed to unlock wallet: %w", err)
	}
	return nil
}
