package ros

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const (
	Sep       = "/"
	GlobalNS  = "/"
	PrivateNS = "~"
	// Remap separates the two halves of a remapping argument.
	Remap = ":="
)

var (
	validNameRe      = regexp.MustCompile(`^[~/]?([a-zA-Z]\w*/)*[a-zA-Z]\w*/?$`)
	validNamespaceRe = regexp.MustCompile(`^/([a-zA-Z]\w*/)*$`)
)

type NameMap map[string]string

// qualifyNodeName splits a node name into its namespace and base name.
func qualifyNodeName(nodeName string) (string, string, error) {
	if nodeName == "" {
		return "", "", errors.New("empty node name")
	}
	if strings.HasPrefix(nodeName, PrivateNS) {
		return "", "", errors.New("node name should not start with '~'")
	}
	if !isValidName(nodeName) {
		return "", "", errors.Errorf("invalid node name %q", nodeName)
	}
	components := splitName(canonicalizeName(nodeName))
	last := len(components) - 1
	return GlobalNS + strings.Join(components[:last], Sep), components[last], nil
}

func splitName(name string) []string {
	var components []string
	for _, c := range strings.Split(name, Sep) {
		if len(c) > 0 {
			components = append(components, c)
		}
	}
	return components
}

// resolveName makes name absolute. Relative names resolve against
// namespace, private names against the node's own name.
func resolveName(name string, namespace string, nodeName string) string {
	if len(name) == 0 {
		return canonicalizeName(namespace)
	}
	canonName := canonicalizeName(name)
	switch {
	case isGlobalName(canonName):
		return canonName
	case isPrivateName(canonName):
		return canonicalizeName(GlobalNS + namespace + Sep + nodeName + Sep + canonName[1:])
	default:
		return canonicalizeName(GlobalNS + namespace + Sep + canonName)
	}
}

func isValidName(name string) bool {
	if len(name) == 0 || name == GlobalNS || name == PrivateNS {
		return true
	}
	return validNameRe.MatchString(name)
}

func isValidNamespace(name string) bool {
	return validNamespaceRe.MatchString(name)
}

func isGlobalName(name string) bool {
	return strings.HasPrefix(name, GlobalNS)
}

func isPrivateName(name string) bool {
	return strings.HasPrefix(name, PrivateNS)
}

// canonicalizeName drops empty components and the trailing separator.
func canonicalizeName(name string) string {
	if name == GlobalNS || name == "" {
		return name
	}
	joined := strings.Join(splitName(name), Sep)
	if isGlobalName(name) {
		return GlobalNS + joined
	}
	return joined
}

// processArguments sorts command line arguments into remappings,
// private parameters (_name:=value), special keys (__name:=value) and
// everything else.
func processArguments(args []string) (NameMap, NameMap, NameMap, []string) {
	mapping := make(NameMap)
	params := make(NameMap)
	specials := make(NameMap)
	rest := make([]string, 0)
	for _, arg := range args {
		components := strings.Split(arg, Remap)
		if len(components) != 2 {
			rest = append(rest, arg)
			continue
		}
		key, value := components[0], components[1]
		switch {
		case strings.HasPrefix(key, "__"):
			specials[key] = value
		case strings.HasPrefix(key, "_"):
			params[key[1:]] = value
		default:
			mapping[key] = value
		}
	}
	return mapping, params, specials, rest
}

// NameResolver resolves topic names for one node, applying remappings.
type NameResolver struct {
	nodeName  string
	namespace string
	mapping   NameMap
}

func newNameResolver(namespace string, nodeName string, remapping NameMap) *NameResolver {
	n := &NameResolver{
		nodeName:  nodeName,
		namespace: canonicalizeName(GlobalNS + namespace),
		mapping:   make(NameMap),
	}
	for k, v := range remapping {
		n.mapping[n.resolve(k)] = n.resolve(v)
	}
	return n
}

func (n *NameResolver) resolve(name string) string {
	return resolveName(name, n.namespace, n.nodeName)
}

func (n *NameResolver) remap(name string) string {
	r := n.resolve(name)
	if remapped, ok := n.mapping[r]; ok {
		return remapped
	}
	return r
}
