// Package magetasks provides the build, test and lint tasks behind the
// cibot Magefile. Tasks are grouped into mage namespaces in magefile.go.
package magetasks
