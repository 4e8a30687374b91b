package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"github.com/eurotz/tzgate/pkg/b58check"
	"github.com/eurotz/tzgate/pkg/hexbuf"
	"github.com/eurotz/tzgate/pkg/log"
	"github.com/eurotz/tzgate/pkg/michelson"
	"github.com/eurotz/tzgate/pkg/sign"
)

var errUsage = errors.New("invalid arguments")

type cliCommand struct {
	usage string
	run   func(logger log.Logger, args []string, out io.Writer) error
}

var cliCommands = map[string]cliCommand{
	"sign": {
		usage: "tzgate sign <message-hex> [secret-key]",
		run:   runSignCli,
	},
	"verify": {
		usage: "tzgate verify <message-hex> <signature> <public-key>",
		run:   runVerifyCli,
	},
	"expr": {
		usage: "tzgate expr <packed-hex>",
		run:   runExprCli,
	},
	"address": {
		usage: "tzgate address <public-key|secret-key>",
		run:   runAddressCli,
	},
	"token": {
		usage: "tzgate token <subject> [scope...]",
		run:   runTokenCli,
	},
	"kinds": {
		usage: "tzgate kinds",
		run:   runKindsCli,
	},
	"signatures": {
		usage: "tzgate signatures [signer] [limit]",
		run:   runSignaturesCli,
	},
	"config": {
		usage: "tzgate config",
		run:   runConfigCli,
	},
}

func runCli(logger log.Logger, args []string) {
	name := args[0]
	cmd, ok := cliCommands[name]
	if !ok {
		logger.Fatal("unknown CLI command", "name", name)
		return
	}

	logger = logger.WithName(name)
	if err := cmd.run(logger, args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			logger.Fatal("usage: " + cmd.usage)
			return
		}
		logger.Fatal("command failed", "error", err)
	}
}

// runSignCli signs a hex message and records it in the configured database.
// The secret key defaults to TZGATE_SECRET_KEY, then to a terminal prompt.
// Example: tzgate sign 0500 edsk...
func runSignCli(logger log.Logger, args []string, out io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	message, err := hexbuf.Decode(args[0])
	if err != nil {
		return err
	}

	config, err := LoadConfig(logger)
	if err != nil {
		return err
	}
	secretKey := config.SecretKey
	if len(args) == 2 {
		secretKey = args[1]
	}
	if secretKey == "" {
		if secretKey, err = readSecretKey(); err != nil {
			return err
		}
	}

	signer, err := sign.NewSignerFromEncoded(secretKey)
	if err != nil {
		return err
	}

	db, err := ConnectToDB(config.DB, logger)
	if err != nil {
		return fmt.Errorf("failed to setup database: %w", err)
	}

	record, err := SignAndRecord(context.Background(), NewSignatureLogStore(db), signer, PurposeCLI, message, nil)
	if err != nil {
		return err
	}
	logger.Debug("signature recorded", "id", record.ID, "signer", record.Signer)

	_, err = fmt.Fprintln(out, record.Signature)
	return err
}

func readSecretKey() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no secret key given and TZGATE_SECRET_KEY is not set")
	}

	fmt.Fprint(os.Stderr, "Secret key: ")
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read secret key: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

func runVerifyCli(logger log.Logger, args []string, out io.Writer) error {
	if len(args) != 3 {
		return errUsage
	}
	sig, err := b58check.Parse(args[1])
	if err != nil {
		return fmt.Errorf("%w: %w", sign.ErrInvalidSignature, err)
	}
	publicKey, err := sign.ParsePublicKey(args[2])
	if err != nil {
		return err
	}
	if err := sign.VerifyDetached(args[0], sig, publicKey); err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, "valid signature by", publicKey.Address())
	return err
}

func runExprCli(logger log.Logger, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	key, err := michelson.ExprKey(args[0])
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, key)
	return err
}

// runAddressCli prints the address of a public key, or of the key pair of a
// secret key.
func runAddressCli(logger log.Logger, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}

	var publicKey sign.PublicKey
	if strings.HasPrefix(args[0], "edsk") || strings.HasPrefix(args[0], "spsk") {
		signer, err := sign.NewSignerFromEncoded(args[0])
		if err != nil {
			return err
		}
		publicKey = signer.PublicKey()
	} else {
		var err error
		if publicKey, err = sign.ParsePublicKey(args[0]); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(out, "%s\n%s\n", publicKey.Address(), publicKey.Encoded())
	return err
}

// runTokenCli issues an API token signed with TZGATE_AUTH_SECRET.
// Example: tzgate token ops sign
func runTokenCli(logger log.Logger, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}

	config, err := LoadConfig(logger)
	if err != nil {
		return err
	}
	authManager := NewAuthManager(config.Auth)
	if authManager == nil {
		return errors.New("TZGATE_AUTH_SECRET is not set")
	}

	scopes := args[1:]
	if len(scopes) == 0 {
		scopes = []string{ScopeSign}
	}
	claims, token, err := authManager.GenerateJWT(args[0], scopes...)
	if err != nil {
		return err
	}
	logger.Info("token issued", "subject", claims.Subject, "scopes", claims.Scopes, "expiresAt", claims.ExpiresAt.Time)

	_, err = fmt.Fprintln(out, token)
	return err
}

// runKindsCli prints the registered base58check kinds.
func runKindsCli(logger log.Logger, args []string, out io.Writer) error {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Kind", "Prefix", "Payload bytes"})
	t.AppendSeparator()
	for _, kind := range b58check.Kinds() {
		t.AppendRow(table.Row{kind, hexbuf.Encode(kind.Prefix()), kind.PayloadLen()})
	}
	t.Render()
	return nil
}

// runSignaturesCli prints the newest recorded signatures.
// Example: tzgate signatures tz1... 20
func runSignaturesCli(logger log.Logger, args []string, out io.Writer) error {
	if len(args) > 2 {
		return errUsage
	}

	var signer *string
	if len(args) > 0 && args[0] != "" {
		if _, err := sign.ParseAddress(args[0]); err != nil {
			return err
		}
		signer = &args[0]
	}
	options := &ListOptions{}
	if len(args) == 2 {
		if _, err := fmt.Sscan(args[1], &options.Limit); err != nil {
			return fmt.Errorf("invalid limit %q: %w", args[1], err)
		}
	}

	config, err := LoadConfig(logger)
	if err != nil {
		return err
	}
	db, err := ConnectToDB(config.DB, logger)
	if err != nil {
		return fmt.Errorf("failed to setup database: %w", err)
	}

	store := NewSignatureLogStore(db)
	ctx := context.Background()
	records, err := store.List(ctx, signer, nil, options)
	if err != nil {
		return err
	}
	total, err := store.Count(ctx, signer, nil)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"ID", "Signer", "Purpose", "Signature", "Created At"})
	t.AppendSeparator()
	for _, r := range records {
		t.AppendRow(table.Row{r.ID, r.Signer, r.Purpose, r.Signature, r.CreatedAt.Format(time.RFC3339)})
	}
	t.AppendFooter(table.Row{"", "", "", "TOTAL", total})
	t.Render()
	return nil
}

func runConfigCli(logger log.Logger, args []string, out io.Writer) error {
	desc, err := ConfigDescription()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, desc)
	return err
}
