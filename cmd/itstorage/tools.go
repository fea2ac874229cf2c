package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/StarAlexander/inventory-storage-diploma/internal/db"
	"github.com/StarAlexander/inventory-storage-diploma/internal/signing"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.Open(cfg.DBDriver, cfg.DBSource())
			if err != nil {
				return err
			}
			logger.Info("migrations applied", "db_driver", cfg.DBDriver)
			return database.Close()
		},
	}
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Issue an ECDSA P-384 keypair and print both PEM halves",
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := signing.IssueKeypair()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprint(out, kp.PrivateKey); err != nil {
				return err
			}
			_, err = fmt.Fprint(out, kp.PublicKey)
			return err
		},
	}
}

func newVerifyCmd() *cobra.Command {
	var (
		documentID    int64
		publicKeyFile string
		signature     string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a signature against a stored document",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := os.ReadFile(publicKeyFile)
			if err != nil {
				return fmt.Errorf("failed to read public key: %w", err)
			}

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.services.Documents.Verify(context.Background(), documentID, string(pub), signature)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if !res.Valid {
				return fmt.Errorf("signature is not valid: %s", res.Error)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&documentID, "document", 0, "Document id")
	cmd.Flags().StringVar(&publicKeyFile, "public-key-file", "", "Path to the signer's PEM public key")
	cmd.Flags().StringVar(&signature, "signature", "", "Base64 signature")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("public-key-file")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}

