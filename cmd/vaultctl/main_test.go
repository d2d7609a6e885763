package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	var names []string
	for _, cmd := range newRootCmd().Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"keygen", "init", "swap", "withdraw", "show", "balance"} {
		assert.Contains(t, names, want)
	}
}

func TestInitCmd_RequiresAmountAndPeriods(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"init"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestShowCmd_RejectsArgs(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"show", "extra"})
	assert.Error(t, root.Execute())
}

func TestInitCmd_PeriodsRange(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"init", "--amount", "1", "--periods", "70000"})
	assert.Error(t, root.Execute(), "periods must fit a uint16")
}
