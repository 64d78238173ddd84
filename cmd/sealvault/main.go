// Command sealvault is a thin CLI wrapper around the repository, save,
// and restore packages. One verb per invocation: init, save, restore
// (load is an alias for restore). Argument parsing is deliberately bare
// os.Args — a full flag/command framework is out of scope.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/blockvault/sealvault/chunker"
	"github.com/blockvault/sealvault/keymaterial"
	"github.com/blockvault/sealvault/pipeline"
	"github.com/blockvault/sealvault/repository"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := run(log, os.Args[1:]); err != nil {
		log.WithError(err).Error("sealvault failed")
		os.Exit(exitCode(err))
	}
}

func run(log *logrus.Logger, args []string) error {
	if len(args) < 1 {
		return pkgerrors.New("usage: sealvault <init|save|restore|load> [name]")
	}

	entry := logrus.NewEntry(log)
	cwd, err := os.Getwd()
	if err != nil {
		return pkgerrors.Wrap(err, "determine working directory")
	}

	switch args[0] {
	case "init":
		return runInit(cwd, entry)
	case "save":
		if len(args) < 2 {
			return pkgerrors.New("usage: sealvault save <name>")
		}
		return runSave(cwd, args[1], entry)
	case "restore", "load":
		if len(args) < 2 {
			return pkgerrors.New("usage: sealvault restore <name>")
		}
		return runRestore(cwd, args[1], entry)
	default:
		return pkgerrors.Errorf("unknown verb %q", args[0])
	}
}

func runInit(root string, log *logrus.Entry) error {
	_, secret, err := repository.Init(root, "sha256", chunker.DefaultParams(), log)
	if err != nil {
		return pkgerrors.Wrap(err, "init")
	}
	fmt.Fprintln(os.Stdout, secret.Hex())
	return nil
}

func runSave(root, name string, log *logrus.Entry) error {
	repo, err := repository.Open(root, log)
	if err != nil {
		return pkgerrors.Wrap(err, "open repository")
	}

	res, err := pipeline.Save(repo, name, bufio.NewReader(os.Stdin), pipeline.SaveOptions{Workers: 4})
	if err != nil {
		return pkgerrors.Wrapf(err, "save %q", name)
	}

	log.WithFields(logrus.Fields{"chunks": res.Chunks, "bytes": res.Bytes}).Info("save complete")
	return nil
}

func runRestore(root, name string, log *logrus.Entry) error {
	repo, err := repository.Open(root, log)
	if err != nil {
		return pkgerrors.Wrap(err, "open repository")
	}

	secretLine, err := readSecretKey(os.Stdin)
	if err != nil {
		return pkgerrors.Wrap(err, "read secret key")
	}
	sec, err := keymaterial.SecretKeyFromHex(secretLine)
	if err != nil {
		return pkgerrors.Wrap(err, "parse secret key")
	}

	res, err := pipeline.Restore(repo, name, sec, os.Stdout)
	if err != nil {
		return pkgerrors.Wrapf(err, "restore %q", name)
	}

	log.WithFields(logrus.Fields{"chunks": res.Chunks, "bytes": res.Bytes}).Info("restore complete")
	return nil
}

// readSecretKey reads the printable secret key from r. It accepts a
// single line, stripping the trailing newline that a terminal or echo
// pipeline would leave attached.
func readSecretKey(r io.Reader) (string, error) {
	reader := bufio.NewReader(r)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

// exitCode maps an error kind from the repository package to a process
// exit status. Everything not specifically classified exits 1.
func exitCode(err error) int {
	switch {
	case errors.Is(err, repository.ErrRepoNotFound):
		return 10
	case errors.Is(err, repository.ErrRepoMalformed):
		return 11
	case errors.Is(err, repository.ErrNameExists):
		return 12
	case errors.Is(err, repository.ErrNameNotFound):
		return 13
	case errors.Is(err, repository.ErrNameMalformed):
		return 14
	case errors.Is(err, repository.ErrChunkMissing):
		return 15
	case errors.Is(err, repository.ErrCorruption):
		return 16
	case errors.Is(err, repository.ErrCryptoFailure):
		return 17
	default:
		return 1
	}
}
