// Package paths describes the on-disk layout of an install prefix.
//
// Every formula version gets a private keg under PREFIX/Cellar/NAME/VERSION.
// Its bin, sbin, lib, include and share entries are linked into the prefix,
// and PREFIX/opt/NAME points at the active keg. etc and var are shared
// between versions so configuration and data survive upgrades.
//
// Install receipts are kept in PREFIX/var/cellar/receipts. Downloads and
// build trees default to $XDG_CACHE_HOME/cellar, and the user configuration
// lives in $XDG_CONFIG_HOME/cellar.
package paths
