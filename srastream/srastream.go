// Streams the reads of an SRA run accession to fastq files or named pipes.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fluhus/ngstream/cli"
	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/sra"
	"github.com/fluhus/ngstream/stream"
)

var (
	ngc       = flag.String("ngc", "", "Credentials `file` for controlled-access runs")
	fastqDump = flag.String("fastq-dump", "fastq-dump", "The fastq-dump `executable`")
	dumpArgs  = flag.String("fastq-dump-args", "",
		"Extra space-separated `arguments` for fastq-dump")
	singleEnd = flag.Bool("single-end", false, "Stream mates as separate reads")
	paired    = flag.Bool("paired", false, "Fail if the run is not paired-end")
	local     = flag.Bool("local", false,
		"Input is one fastq file or two comma-separated mate files")

	out = cli.Register(flag.CommandLine)
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: srastream [flags] ACCESSION")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	opts, err := out.Options()
	common.Die(err)

	ctx, stop := cli.Context()
	defer stop()

	kind := common.If(*local, "fastq", "sra")
	ro := stream.ReaderOptions{SRA: sra.Config{
		Client: &sra.ExecClient{
			Exe:  *fastqDump,
			NGC:  *ngc,
			Args: strings.Fields(*dumpArgs),
		},
		RequirePaired: *paired,
		SingleEnd:     *singleEnd,
	}}
	fmt.Fprintln(os.Stderr, "Streaming", flag.Arg(0), "range", opts.Range)
	res, err := stream.Dump(ctx, stream.Opener(kind, flag.Arg(0), ro), opts)
	out.Finish(res, err)
}
