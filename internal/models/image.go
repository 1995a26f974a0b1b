package models

import (
	"fmt"
	"strings"
)

// Group is the counterbalancing half an image was assigned to by the curator.
type Group string

const (
	GroupA Group = "a"
	GroupB Group = "b"
)

// Category separates manufactured from natural objects.
type Category string

const (
	Manufactured Category = "man"
	Natural      Category = "nat"
)

// StimulusImage is a raster file named {a|b}_{man|nat}_<original-name>.
type StimulusImage struct {
	Filename string
	Group    Group
	Category Category
	Original string
}

// Prefix returns the "a_man_" style tag shared by every image in the same partition.
func Prefix(g Group, c Category) string {
	return string(g) + "_" + string(c) + "_"
}

// StimulusName builds the on-disk name for an original file in a partition.
func StimulusName(g Group, c Category, original string) string {
	return Prefix(g, c) + original
}

// ParseStimulusName splits a filename into its partition tags.
func ParseStimulusName(filename string) (StimulusImage, error) {
	parts := strings.SplitN(filename, "_", 3)
	if len(parts) != 3 || parts[2] == "" {
		return StimulusImage{}, fmt.Errorf("filename %q does not follow {a|b}_{man|nat}_<name>", filename)
	}

	g := Group(parts[0])
	if g != GroupA && g != GroupB {
		return StimulusImage{}, fmt.Errorf("filename %q has unknown group %q", filename, parts[0])
	}
	c := Category(parts[1])
	if c != Manufactured && c != Natural {
		return StimulusImage{}, fmt.Errorf("filename %q has unknown category %q", filename, parts[1])
	}

	return StimulusImage{
		Filename: filename,
		Group:    g,
		Category: c,
		Original: parts[2],
	}, nil
}
