// Streams reads from an htsget server to fastq files or named pipes.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fluhus/ngstream/cli"
	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/htsget"
	"github.com/fluhus/ngstream/stream"
)

var (
	refFlag   = flag.String("g", "",
		"Genome reference as `name=file`, where file is a chrom.sizes table")
	region    = flag.String("r", "", "Region to stream: `chrom` or chrom:start-end")
	chroms    = flag.String("chroms", "",
		"Comma-separated `chromosomes` to split into windows (default: all)")
	winSize   = flag.Int("w", 0,
		"Split the reference into windows of this `length`, 0 for whole chromosomes")
	winStep   = flag.Int("ws", 1, "Request every `n`-th window")
	token     = flag.String("token", os.Getenv("HTSGET_TOKEN"), "Bearer `token`")
	tags      = flag.String("tags", "", "Comma-separated `tags` to request")
	noTags    = flag.String("notags", "", "Comma-separated `tags` to exclude")
	timeout   = flag.Duration("timeout", htsget.DefaultTimeout, "HTTP request timeout")
	singleEnd = flag.Bool("single-end", false, "Do not pair mates")

	out = cli.Register(flag.CommandLine)
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: htsgetstream [flags] URL")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	opts, err := out.Options()
	common.Die(err)

	cfg := htsget.Config{
		Region:    *region,
		SingleEnd: *singleEnd,
		Tags:      splitList(*tags),
		NoTags:    splitList(*noTags),
		Token:     *token,
		Timeout:   *timeout,
	}
	if *refFlag != "" {
		name, file, ok := strings.Cut(*refFlag, "=")
		if !ok {
			common.Die(common.RangeError("bad reference %q, want name=file", *refFlag))
		}
		cfg.Reference, err = htsget.LoadReference(name, file)
		common.Die(err)
		if *region == "" {
			cfg.Windows = &htsget.Windows{
				Chromosomes: splitList(*chroms),
				Size:        *winSize,
				Step:        *winStep,
			}
		}
	}

	ctx, stop := cli.Context()
	defer stop()

	fmt.Fprintln(os.Stderr, "Streaming", flag.Arg(0), "range", opts.Range)
	res, err := stream.Dump(ctx,
		stream.Opener("htsget", flag.Arg(0), stream.ReaderOptions{Htsget: cfg}), opts)
	out.Finish(res, err)
}

// Splits a comma-separated list. Returns nil for an empty string.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
