// Copyright (C) 2024 Chronofold Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command lodctl is an example driver for the LOD engine: replay ndjson
// readings into a store, answer a range query against one, export a
// portable snapshot, and report free disk space near a store.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
)

var (
	dashv      bool
	dashh      bool
	dashunsafe bool
	dashk      string
)

func init() {
	flag.BoolVar(&dashv, "v", false, "verbose")
	flag.BoolVar(&dashh, "h", false, "show usage help")
	flag.BoolVar(&dashunsafe, "unsafe", false, "use unsafe checkpoint signing key")
	flag.StringVar(&dashk, "k", "", "key file to use for checkpoint signing")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

func logf(f string, args ...interface{}) {
	log.Printf(f, args...)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "    %s [-unsafe|-k keyfile] ingest <config.yaml> <readings.ndjson>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        replay ndjson readings into the configured store\n")
	fmt.Fprintf(os.Stderr, "    %s [-unsafe|-k keyfile] query <config.yaml> <start_sec> <end_sec> <n>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        answer a range query split into n sub-intervals\n")
	fmt.Fprintf(os.Stderr, "    %s export <config.yaml> <out.tar.zst>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        bundle the store file and its checkpoint into a portable snapshot\n")
	fmt.Fprintf(os.Stderr, "    %s diskfree <dir>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        report free disk space under dir\n")
	fmt.Fprintf(os.Stderr, "flag usage:\n")
	flag.Usage()
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 || dashh {
		usage()
		os.Exit(1)
	}

	switch args[0] {
	case "ingest":
		if len(args) != 3 {
			exitf("usage: ingest <config.yaml> <readings.ndjson>\n")
		}
		ingest(loadConfig(args[1]), args[2])
	case "query":
		if len(args) != 5 {
			exitf("usage: query <config.yaml> <start_sec> <end_sec> <n>\n")
		}
		start := mustParseInt(args[2])
		end := mustParseInt(args[3])
		n := mustParseInt(args[4])
		query(loadConfig(args[1]), start, end, int(n))
	case "export":
		if len(args) != 3 {
			exitf("usage: export <config.yaml> <out.tar.zst>\n")
		}
		export(loadConfig(args[1]), args[2])
	case "diskfree":
		if len(args) != 2 {
			exitf("usage: diskfree <dir>\n")
		}
		diskfree(args[1])
	default:
		exitf("commands: ingest, query, export, diskfree\n")
	}
}

func mustParseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		exitf("%q is not an integer: %s\n", s, err)
	}
	return n
}
