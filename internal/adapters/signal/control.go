package signal

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) handleWhoAmI(conn *WsSignalConn) {
	resp := struct {
		Type         string `json:"type"`
		Identity     string `json:"identity"`
		ConnectionID string `json:"connectionId"`
		Devices      int    `json:"devices"`
	}{
		Type:         "whoami",
		Identity:     string(conn.identity),
		ConnectionID: string(conn.id),
		Devices:      len(ctl.Orch.Registry.Lookup(conn.identity)),
	}
	ctl.sendJSON(conn, resp)
}
