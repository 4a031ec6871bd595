package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCompare(t *testing.T) {
	testCases := []struct {
		versionRequirement string
		version            string
		expectResult       bool
	}{
		{
			versionRequirement: ">=1.9.0",
			version:            "1.10.0",
			expectResult:       true,
		},
		{
			versionRequirement: ">=1.3.0",
			version:            "1.3.0",
			expectResult:       true,
		},
		{
			versionRequirement: ">=1.3.0",
			version:            "1.2.0",
			expectResult:       false,
		},
		{
			versionRequirement: ">v1.3.0",
			version:            "v1.4.0",
			expectResult:       true,
		},
		{
			versionRequirement: ">1.3.0",
			version:            "v1.3.0",
			expectResult:       false,
		},
		{
			versionRequirement: "1.3.0",
			version:            "1.3.0",
			expectResult:       true,
		},
		{
			versionRequirement: "",
			version:            "1.3.0",
			expectResult:       true,
		},
		{
			versionRequirement: ">=3.13",
			version:            "3.22.1",
			expectResult:       true,
		},
		{
			versionRequirement: ">=3.13 <4",
			version:            "4.0",
			expectResult:       false,
		},
		{
			versionRequirement: ">=1.10",
			version:            "not-a-version",
			expectResult:       false,
		},
	}
	for _, tCase := range testCases {
		assert.Equal(t, tCase.expectResult, versionRequired(tCase.versionRequirement, tCase.version), "version check result not match for %q %q", tCase.versionRequirement, tCase.version)
	}
}

func TestParseToolVersion(t *testing.T) {
	v, err := parseToolVersion("cmake version 3.22.1\n\nCMake suite maintained and supported by Kitware (kitware.com/cmake).\n")
	require.NoError(t, err)
	assert.Equal(t, "3.22.1", v)

	v, err = parseToolVersion("1.10.1\n")
	require.NoError(t, err)
	assert.Equal(t, "1.10.1", v)

	_, err = parseToolVersion("unknown")
	assert.Error(t, err)
}

func TestCheckRequirements(t *testing.T) {
	exe := &fakeExecutor{versions: map[string]string{
		"cmake": "cmake version 3.22.1\n",
		"ninja": "1.8.2\n",
	}}
	ctx := context.Background()

	require.NoError(t, checkRequirements(ctx, exe, "/src", map[string]string{"cmake": ">=3.13", "ninja": ">=1.8"}))
	assert.Len(t, exe.calls, 2)

	err := checkRequirements(ctx, exe, "/src", map[string]string{"ninja": ">=1.10"})
	assert.EqualError(t, err, "'ninja' version 1.8.2 does not satisfy '>=1.10'")

	err = checkRequirements(ctx, exe, "/src", map[string]string{"ctest": ">=3.13"})
	assert.Error(t, err)
}
