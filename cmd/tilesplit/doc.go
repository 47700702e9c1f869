// Package main hosts the tilesplit CLI.
//
// The root command splits one image into left and right tiles; subcommands
// inspect inputs and scaffold configuration. Exit statuses follow
// tilesplit.ExitCode so scripts can tell usage, geometry and I/O failures apart.
package main
