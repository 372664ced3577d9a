package sim

import (
	"strconv"
	"strings"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// NameMustBeValid panics if the name does not follow the naming convention.
//  1. It must be organized in a hierarchical structure. For example, a name
//     "SObi.Req" is valid, but "SObi.Req." is not.
//  2. Individual names must not be empty. For example, "A..B" is not valid.
//  3. Individual names must be named as capitalized CamelCase style.
//  4. Elements in a series must be named using square-bracket notation.
func NameMustBeValid(name string) {
	for _, token := range strings.Split(name, ".") {
		if err := tokenValidity(token); err != "" {
			panic("Name " + name + " is not valid: " + err)
		}
	}
}

func tokenValidity(token string) string {
	elem, rest, _ := strings.Cut(token, "[")
	if elem == "" {
		return "Name element must not be empty"
	}

	if strings.ContainsAny(elem, "_\"'-]") {
		return "Name element must not contain special characters"
	}

	if elem[0] < 'A' || elem[0] > 'Z' {
		return "Name element must start with a capital letter"
	}

	for rest != "" {
		index, after, found := strings.Cut(rest, "]")
		if !found {
			return "Name bracket must match"
		}

		if _, err := strconv.Atoi(index); err != nil {
			return "Name index must be integer"
		}

		if after == "" {
			break
		}

		if after[0] != '[' {
			return "Name bracket must match"
		}

		rest = after[1:]
	}

	return ""
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and an
// index.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
