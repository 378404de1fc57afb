// Package scope ограничивает обход сайтов поставщиков разрешёнными хостами.
// Проверка выполняется до любого сетевого запроса, чтобы cookie авторизованной
// сессии не уходили на посторонние хосты.
package scope

import (
	"net/url"
	"sort"
	"strings"
)

// Registry хранит списки разрешённых хостов по целевым площадкам.
type Registry struct {
	hosts map[string][]string
}

func NewRegistry(hosts map[string][]string) *Registry {
	normalized := make(map[string][]string, len(hosts))
	for target, list := range hosts {
		for _, h := range list {
			if h = normalizeHost(h); h != "" {
				normalized[target] = append(normalized[target], h)
			}
		}
	}
	return &Registry{hosts: normalized}
}

// AllowedHostsForTarget возвращает разрешённые хосты. Пустой список означает отсутствие ограничений.
func (r *Registry) AllowedHostsForTarget(targetID string) []string {
	if r == nil {
		return nil
	}
	list := r.hosts[targetID]
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// Partition — результат разбиения URL по хостам.
type Partition struct {
	Valid        []string
	Invalid      []string
	InvalidHosts []string
}

// PartitionURLsByHost разбивает urls на допустимые и недопустимые.
// Каждый входной URL попадает ровно в один из списков; нераспарсенные URL недопустимы.
func PartitionURLsByHost(urls []string, allowed []string) Partition {
	var (
		p        Partition
		badHosts = make(map[string]struct{})
	)

	for _, raw := range urls {
		host, ok := Hostname(raw)
		if !ok {
			p.Invalid = append(p.Invalid, raw)
			continue
		}

		if !IsAllowedHost(host, allowed) {
			p.Invalid = append(p.Invalid, raw)
			badHosts[host] = struct{}{}
			continue
		}

		p.Valid = append(p.Valid, raw)
	}

	for h := range badHosts {
		p.InvalidHosts = append(p.InvalidHosts, h)
	}
	sort.Strings(p.InvalidHosts)

	return p
}

// IsAllowedHost сообщает, входит ли host в список. Пустой список разрешает любой хост.
func IsAllowedHost(host string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	host = normalizeHost(host)
	for _, a := range allowed {
		if normalizeHost(a) == host {
			return true
		}
	}
	return false
}

// Hostname разбирает абсолютный http(s) URL и возвращает имя хоста в нижнем регистре без порта.
func Hostname(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	host := normalizeHost(u.Hostname())
	if host == "" {
		return "", false
	}
	return host, true
}

func normalizeHost(h string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
}
