// Command tally runs the threshold Paillier protocols of a local session of
// trustees: key generation, the secure operations and winner evaluation.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.dedis.ch/onet/v3/cfgpath"
	"go.dedis.ch/onet/v3/log"
	"gopkg.in/urfave/cli.v1"

	"go.dedis.ch/ordinos/abb"
	"go.dedis.ch/ordinos/authority"
	"go.dedis.ch/ordinos/evaluation"
	"go.dedis.ch/ordinos/paillier"
	"go.dedis.ch/ordinos/primes"
	"go.dedis.ch/ordinos/protocol"
	"go.dedis.ch/ordinos/store"
)

var keysFlag = cli.StringFlag{
	Name:  "keys, k",
	Usage: "key file written by keygen, a fresh key is used if empty",
}

var cmds = cli.Commands{
	{
		Name:   "config",
		Usage:  "write the default configuration",
		Action: writeConfig,
	},
	{
		Name:      "keygen",
		Usage:     "create a threshold key and write it to a file",
		Aliases:   []string{"k"},
		ArgsUsage: "keys.toml",
		Action:    keygen,
	},
	{
		Name:  "primes",
		Usage: "fill the pool of safe primes for the configured key size",
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "count, n",
				Usage: "number of primes to store, default is the pool size",
			},
		},
		Action: fillPrimes,
	},
	{
		Name:    "demo",
		Usage:   "run mul, gt and eq on small inputs",
		Aliases: []string{"d"},
		Flags:   []cli.Flag{keysFlag},
		Action:  demo,
	},
	{
		Name:    "bench",
		Usage:   "measure the secure operations",
		Aliases: []string{"b"},
		Flags: []cli.Flag{
			keysFlag,
			cli.IntFlag{
				Name:  "runs, r",
				Value: 5,
				Usage: "runs per operation",
			},
			cli.IntFlag{
				Name:  "bits",
				Value: 8,
				Usage: "size of the operands",
			},
		},
		Action: bench,
	},
	{
		Name:      "winner",
		Usage:     "find the winners of encrypted points",
		Aliases:   []string{"w"},
		ArgsUsage: "points, e.g. 4,10,7,10",
		Flags: []cli.Flag{
			keysFlag,
			cli.Int64Flag{
				Name:  "max, m",
				Value: 255,
				Usage: "upper bound of the points",
			},
			cli.IntFlag{
				Name:  "winners, n",
				Value: 1,
				Usage: "number of winners",
			},
		},
		Action: winner,
	},
}

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = "tally"
	cliApp.Usage = "Run threshold Paillier protocols on a local set of trustees."
	cliApp.Version = "0.1"
	cliApp.Commands = cmds
	cliApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "debug, d",
			Value: 0,
			Usage: "debug-level: 1 for terse, 5 for maximal",
		},
		cli.StringFlag{
			Name:  "config, c",
			Value: filepath.Join(cfgpath.GetConfigPath("ordinos"), "config.toml"),
			Usage: "path to config-file",
		},
	}
	cliApp.Before = func(c *cli.Context) error {
		log.SetDebugVisible(c.Int("debug"))
		return nil
	}
	log.ErrFatal(cliApp.Run(os.Args))
}

// loadConfig returns the default configuration if the file is missing.
func loadConfig(c *cli.Context) (*authority.Config, error) {
	path := c.GlobalString("config")
	cfg := authority.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if cfg, err = authority.LoadConfig(path); err != nil {
			return nil, err
		}
	} else {
		log.Lvl2("No config at", path, "using defaults")
	}
	if cfg.Debug > 0 && !c.GlobalIsSet("debug") {
		log.SetDebugVisible(cfg.Debug)
	}
	return cfg, nil
}

func writeConfig(c *cli.Context) error {
	path := c.GlobalString("config")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	if err := authority.DefaultConfig().Save(path); err != nil {
		return err
	}
	log.Info("Wrote configuration to", path)
	return nil
}

func keygen(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("please give the name of the key file")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()
	pk, sks, err := paillier.KeyGen(cfg.KeyBits, cfg.Shares, cfg.Threshold,
		primes.NewStorage(db, cfg.PrimePool))
	if err != nil {
		return err
	}
	if err := authority.SaveKeys(c.Args().First(), pk, sks); err != nil {
		return err
	}
	log.Infof("Wrote %d shares of a %d-bit key to %s", len(sks), pk.Bits, c.Args().First())
	return nil
}

func fillPrimes(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	count := c.Int("count")
	if count == 0 {
		count = cfg.PrimePool
	}
	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()
	sps, err := primes.NewStorage(db, cfg.PrimePool).Fill(cfg.KeyBits/2, count)
	if err != nil {
		return err
	}
	log.Infof("%d safe primes of %d bits stored", len(sps), cfg.KeyBits/2)
	return nil
}

func session(c *cli.Context) (*authority.Session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if f := c.String("keys"); f != "" {
		pk, sks, err := authority.LoadKeys(f)
		if err != nil {
			return nil, err
		}
		return authority.NewSessionWithKeys(cfg, pk, sks)
	}
	return authority.NewSession(cfg)
}

func demo(c *cli.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	defer s.Close()
	a := s.ABB()
	x, err := a.Enc(big.NewInt(5))
	if err != nil {
		return err
	}
	y, err := a.Enc(big.NewInt(3))
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, p := range []struct {
		desc string
		p    func() protocol.Protocol
	}{
		{"5 * 3", func() protocol.Protocol { return &protocol.MulDec{X: x, Y: y} }},
		{"5 >= 3", func() protocol.Protocol { return &protocol.GtDec{X: x, Y: y, Bits: 4} }},
		{"3 >= 5", func() protocol.Protocol { return &protocol.GtDec{X: y, Y: x, Bits: 4} }},
		{"5 == 5", func() protocol.Protocol { return &protocol.EqDec{X: x, Y: x, Bits: 4} }},
		{"5 == 3", func() protocol.Protocol { return &protocol.EqDec{X: x, Y: y, Bits: 4} }},
	} {
		res, err := s.RunInt(ctx, p.p)
		if err != nil {
			return fmt.Errorf("%s: %v", p.desc, err)
		}
		log.Infof("%s = %s", p.desc, res)
	}
	log.Info("Operations:", s.Stats())
	return nil
}

func bench(c *cli.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	defer s.Close()
	timings, err := s.Bench(context.Background(), c.Int("runs"), c.Int("bits"))
	if err != nil {
		return err
	}
	for _, t := range timings {
		fmt.Println(t)
	}
	return nil
}

func winner(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("please give the points as a comma separated list")
	}
	var points []int64
	for _, f := range strings.Split(c.Args().First(), ",") {
		p, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid points %q: %v", f, err)
		}
		points = append(points, p)
	}
	s, err := session(c)
	if err != nil {
		return err
	}
	defer s.Close()

	a := s.ABB()
	enc := make([]abb.Value, len(points))
	for i, p := range points {
		if enc[i], err = a.Enc(big.NewInt(p)); err != nil {
			return err
		}
	}
	res, err := s.Run(context.Background(), func() protocol.Protocol {
		return &evaluation.SimpleWinner{Points: enc, MaxPoints: c.Int64("max"),
			Winners: c.Int("winners")}
	})
	if err != nil {
		return err
	}
	log.Info("Winners:", res)
	log.Info("Operations:", s.Stats())
	return nil
}
