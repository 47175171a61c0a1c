package httpapi

import (
	"net/http"
	"strings"
	"time"

	"qcss/internal/dispatcher"
	"qcss/internal/store"
	"qcss/pkg/apperror"
)

type loadBalancerOut struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        string `json:"type"`
}

type virtualServerListOut struct {
	Name            string `json:"name"`
	VIP             string `json:"vip"`
	AggregatedState string `json:"aggregatedState"`
}

type virtualServerOut struct {
	Name     string            `json:"name"`
	VIP      string            `json:"vip"`
	Protocol string            `json:"protocol"`
	Mode     string            `json:"mode"`
	Extra    map[string]string `json:"extra,omitempty"`
	Actions  map[string]string `json:"actions,omitempty"`
}

type memberListOut struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

type realServerOut struct {
	Name     string            `json:"name"`
	IP       string            `json:"ip"`
	Port     int               `json:"port"`
	Protocol string            `json:"protocol"`
	Weight   int               `json:"weight,omitempty"`
	State    string            `json:"state"`
	Extra    map[string]string `json:"extra,omitempty"`
	Actions  map[string]string `json:"actions,omitempty"`
}

// resourceHandlers owns the store/dispatcher pair that backs the device
// resource tree; every read handler takes the request's as-of date from
// context (see pastmiddleware.go), and the handlers under a single load
// balancer run the staleness decorator before touching the store. The
// load-balancer list, search, refresh and action handlers do not.
type resourceHandlers struct {
	reader     *store.Reader
	dispatcher *dispatcher.Dispatcher
}

func (h *resourceHandlers) listLoadBalancers(w http.ResponseWriter, r *http.Request) {
	names, err := h.reader.ListLoadBalancers(r.Context(), asOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *resourceHandlers) getLoadBalancer(w http.ResponseWriter, r *http.Request) {
	lb := r.PathValue("lb")
	refreshIfStale(r.Context(), h.reader, h.dispatcher, lb, "", "", asOf(r), lbStaleAfter)

	tree, err := h.reader.GetLoadBalancer(r.Context(), lb, asOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loadBalancerOut{Name: tree.Name, Description: tree.Description, Kind: tree.Kind})
}

func (h *resourceHandlers) listVirtualServers(w http.ResponseWriter, r *http.Request) {
	lb := r.PathValue("lb")
	refreshIfStale(r.Context(), h.reader, h.dispatcher, lb, "", "", asOf(r), lbStaleAfter)

	summaries, err := h.reader.ListVirtualServers(r.Context(), lb, asOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]virtualServerListOut, len(summaries))
	for i, s := range summaries {
		out[i] = virtualServerListOut{Name: s.Name, VIP: s.VIP, AggregatedState: string(s.AggregatedState)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"vs": out})
}

func (h *resourceHandlers) getVirtualServer(w http.ResponseWriter, r *http.Request) {
	lb, vs := r.PathValue("lb"), r.PathValue("vs")
	refreshIfStale(r.Context(), h.reader, h.dispatcher, lb, vs, "", asOf(r), vsStaleAfter)

	node, err := h.reader.GetVirtualServer(r.Context(), lb, vs, asOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, virtualServerOut{
		Name: node.Name, VIP: node.VIP, Protocol: node.Protocol, Mode: node.Mode,
		Extra: node.Extra, Actions: node.Actions,
	})
}

func (h *resourceHandlers) listMembers(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, vs := r.PathValue("lb"), r.PathValue("vs")
		refreshIfStale(r.Context(), h.reader, h.dispatcher, lb, vs, "", asOf(r), vsStaleAfter)

		members, err := h.reader.ListMembers(r.Context(), lb, vs, kind, asOf(r))
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]memberListOut, len(members))
		for i, m := range members {
			out[i] = memberListOut{Name: m.Name, State: string(m.State)}
		}
		key := "rs"
		writeJSON(w, http.StatusOK, map[string]any{key: out})
	}
}

func (h *resourceHandlers) getRealServer(w http.ResponseWriter, r *http.Request) {
	lb, vs, rs := r.PathValue("lb"), r.PathValue("vs"), r.PathValue("rs")
	refreshIfStale(r.Context(), h.reader, h.dispatcher, lb, vs, rs, asOf(r), rsStaleAfter)

	member, err := h.reader.GetRealServer(r.Context(), lb, vs, rs, asOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, realServerOut{
		Name: member.Name, IP: member.RIP, Port: member.RPort, Protocol: member.Protocol,
		Weight: member.Weight, State: string(member.State), Extra: member.Extra, Actions: member.Actions,
	})
}

func (h *resourceHandlers) getSorryServer(w http.ResponseWriter, r *http.Request) {
	lb, vs, rs := r.PathValue("lb"), r.PathValue("vs"), r.PathValue("rs")
	refreshIfStale(r.Context(), h.reader, h.dispatcher, lb, vs, rs, asOf(r), rsStaleAfter)

	member, err := h.reader.GetSorryServer(r.Context(), lb, vs, rs, asOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, realServerOut{
		Name: member.Name, IP: member.RIP, Port: member.RPort, Protocol: member.Protocol,
		State: string(member.State), Extra: member.Extra, Actions: member.Actions,
	})
}

func (h *resourceHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	lb := r.PathValue("lb")
	start := time.Now()
	if err := h.dispatcher.Refresh(r.Context(), lb, "", ""); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Refreshed in " + time.Since(start).Round(time.Millisecond).String()))
}

// action handles GET .../action/{action}/{args...}/: args is whatever path
// segments follow the action name, split back into a slice the way the
// collector's action table expects them.
func (h *resourceHandlers) action(w http.ResponseWriter, r *http.Request) {
	lb, vs, rs := r.PathValue("lb"), r.PathValue("vs"), r.PathValue("rs")
	action := r.PathValue("action")
	rest := strings.Trim(r.PathValue("args"), "/")
	var args []string
	if rest != "" {
		args = strings.Split(rest, "/")
	}

	result, err := h.dispatcher.Actions(r.Context(), lb, vs, rs, &action, args, true)
	if err != nil {
		writeError(w, err)
		return
	}
	if result == nil {
		writeError(w, apperror.NewWithField(apperror.CodeActionUnknown, "action not handled by this device", action))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// listActions handles GET .../action/ (no action name): the dispatcher
// returns the set of action names the resolved collector exposes.
func (h *resourceHandlers) listActions(w http.ResponseWriter, r *http.Request) {
	lb, vs, rs := r.PathValue("lb"), r.PathValue("vs"), r.PathValue("rs")
	result, err := h.dispatcher.Actions(r.Context(), lb, vs, rs, nil, nil, true)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Actions)
}

func (h *resourceHandlers) search(w http.ResponseWriter, r *http.Request) {
	term := r.PathValue("term")
	paths, err := h.reader.Search(r.Context(), term, asOf(r), 0)
	if err != nil {
		writeError(w, err)
		return
	}
	urls := make([]string, len(paths))
	for i, p := range paths {
		urls[i] = apiRoot + p
	}
	writeJSON(w, http.StatusOK, urls)
}
