package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"stakedrop/crypto"
)

const passphraseEnv = "STAKEDROP_KEYSTORE_PASSPHRASE"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "genkey":
		runGenKey(os.Args[2:])
	case "addr":
		runAddr(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: stakedrop-cli <command> [flags]")
	fmt.Fprintln(os.Stderr, "  genkey -out <path>    generate a key and write an encrypted keystore file")
	fmt.Fprintln(os.Stderr, "  addr -keystore <path> print the address held in a keystore file")
	fmt.Fprintf(os.Stderr, "the keystore passphrase is read from %s\n", passphraseEnv)
}

func passphrase() string {
	pass := os.Getenv(passphraseEnv)
	if pass == "" {
		fmt.Fprintf(os.Stderr, "%s must be set\n", passphraseEnv)
		os.Exit(1)
	}
	return pass
}

func runGenKey(args []string) {
	fs := flag.NewFlagSet("genkey", flag.ExitOnError)
	out := fs.String("out", "./keystore.json", "path for the encrypted keystore file")
	showKey := fs.Bool("show-private", false, "also print the raw private key hex")
	_ = fs.Parse(args)

	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "genkey: %v\n", err)
		os.Exit(1)
	}
	if err := crypto.SaveToKeystore(*out, key, passphrase()); err != nil {
		fmt.Fprintf(os.Stderr, "genkey: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("address: %s\n", key.PubKey().Address().String())
	fmt.Printf("keystore: %s\n", *out)
	if *showKey {
		fmt.Printf("private: %s\n", hex.EncodeToString(key.Bytes()))
	}
}

func runAddr(args []string) {
	fs := flag.NewFlagSet("addr", flag.ExitOnError)
	path := fs.String("keystore", "./keystore.json", "path of the encrypted keystore file")
	_ = fs.Parse(args)

	key, err := crypto.LoadFromKeystore(*path, passphrase())
	if err != nil {
		fmt.Fprintf(os.Stderr, "addr: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("address: %s\n", key.PubKey().Address().String())
}
