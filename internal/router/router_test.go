package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"pet-med-tracker/internal/router"
)

func TestHTTP_EndToEnd_RecordFlow(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	ownerID := "owner-1"
	caregiverID := "care-1"
	viewerID := "view-1"

	// 1) Owner crea hogar en New York
	householdID := createHousehold(t, ts.URL, ownerID, map[string]any{
		"name":     "Casa Pérez",
		"timezone": "America/New_York",
	})

	// 2) Owner invita caregiver y viewer; ambos aceptan
	caregiverMembership := invite(t, ts.URL, ownerID, householdID, caregiverID, "caregiver")
	accept(t, ts.URL, caregiverID, caregiverMembership)
	viewerMembership := invite(t, ts.URL, ownerID, householdID, viewerID, "viewer")
	accept(t, ts.URL, viewerID, viewerMembership)

	// 3) Owner crea animal
	animalID := createJSON(t, ts.URL, ownerID, "/households/"+householdID+"/animals", map[string]any{
		"name":    "Milo",
		"species": "dog",
		"sex":     "male",
	})

	// 4) Catálogo: medicamento
	medicationID := createJSON(t, ts.URL, ownerID, "/medications", map[string]any{
		"generic_name": "Amoxicillin",
		"route":        "oral",
		"form":         "tablet",
		"strength":     "250mg",
	})

	// 5) Régimen FIXED dos veces al día
	regimenID := createJSON(t, ts.URL, ownerID, "/animals/"+animalID+"/regimens", map[string]any{
		"medication_id": medicationID,
		"schedule_type": "FIXED",
		"times_local":   []string{"08:00", "20:00"},
		"start_date":    "2025-06-01",
		"dose":          "1",
		"dose_unit":     "tablet",
	})

	// 08:05 local NY del 2025-06-10 (EDT, UTC-4).
	nowParam := "2025-06-10T12:05:00Z"
	duePath := "/households/" + householdID + "/due-doses?animal_id=" + animalID + "&now=" + nowParam

	// 6) Due-doses: el slot de las 08:00 está due (y vencido por 5 min),
	//    el de las 20:00 queda en later.
	var due dueGrouped
	{
		st, body := doReq(t, ts.URL, "GET", duePath, caregiverID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 due-doses, got %d body=%s", st, string(body))
		}
		if err := json.Unmarshal(body, &due); err != nil {
			t.Fatalf("decode due-doses: %v", err)
		}
		if len(due.Due) != 1 || len(due.Later) != 1 {
			t.Fatalf("expected 1 due + 1 later, got %d/%d body=%s", len(due.Due), len(due.Later), string(body))
		}
		if !due.Due[0].IsOverdue || due.Due[0].MinutesUntilDue != -5 {
			t.Fatalf("morning slot must be 5 min overdue: %+v", due.Due[0])
		}
		if due.Due[0].RegimenID != regimenID {
			t.Fatalf("unexpected regimen in due list: %s", due.Due[0].RegimenID)
		}
	}

	// 7) Viewer no puede registrar
	{
		st, _ := doReq(t, ts.URL, "POST", "/animals/"+animalID+"/administrations", viewerID, map[string]any{
			"regimen_id":      regimenID,
			"administered_at": due.Due[0].Target,
			"scheduled_for":   due.Due[0].Target,
		})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 record by viewer, got %d", st)
		}
	}

	// 8) Caregiver registra el slot de la mañana
	var recorded adminResponse
	{
		st, body := doReq(t, ts.URL, "POST", "/animals/"+animalID+"/administrations", caregiverID, map[string]any{
			"regimen_id":      regimenID,
			"administered_at": due.Due[0].Target,
			"scheduled_for":   due.Due[0].Target,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 record, got %d body=%s", st, string(body))
		}
		if err := json.Unmarshal(body, &recorded); err != nil {
			t.Fatalf("decode administration: %v", err)
		}
		if recorded.Status != "ON_TIME" {
			t.Fatalf("expected ON_TIME, got %s", recorded.Status)
		}
		if recorded.IdempotencyKey != due.Due[0].IdempotencyKey {
			t.Fatalf("key mismatch: %s vs %s", recorded.IdempotencyKey, due.Due[0].IdempotencyKey)
		}
	}

	// 9) Doble tap del owner sobre el mismo slot: colapsa en el mismo registro
	{
		st, body := doReq(t, ts.URL, "POST", "/animals/"+animalID+"/administrations", ownerID, map[string]any{
			"regimen_id":      regimenID,
			"administered_at": due.Due[0].Target,
			"scheduled_for":   due.Due[0].Target,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 duplicate record, got %d body=%s", st, string(body))
		}
		var dup adminResponse
		_ = json.Unmarshal(body, &dup)
		if dup.ID != recorded.ID {
			t.Fatalf("duplicate must collapse: %s vs %s", dup.ID, recorded.ID)
		}
		if dup.CaregiverUserID != caregiverID {
			t.Fatalf("original caregiver must stick: %s", dup.CaregiverUserID)
		}
	}

	// 10) El slot registrado desaparece de due
	{
		st, body := doReq(t, ts.URL, "GET", duePath, caregiverID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 due-doses, got %d", st)
		}
		var after dueGrouped
		_ = json.Unmarshal(body, &after)
		if len(after.Due) != 0 || len(after.Later) != 1 {
			t.Fatalf("recorded slot must drop from due: %d/%d body=%s", len(after.Due), len(after.Later), string(body))
		}
	}

	// 11) Replay offline: el slot de la noche entra por la cola de sync
	{
		payload, _ := json.Marshal(map[string]any{
			"animal_id":       animalID,
			"regimen_id":      regimenID,
			"administered_at": due.Later[0].Target,
			"scheduled_for":   due.Later[0].Target,
		})
		st, body := doReq(t, ts.URL, "POST", "/sync/commands", caregiverID, map[string]any{
			"type":            "administration.record",
			"payload":         json.RawMessage(payload),
			"idempotency_key": due.Later[0].IdempotencyKey,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 enqueue, got %d body=%s", st, string(body))
		}

		// Reencolar el mismo intento no duplica.
		st, _ = doReq(t, ts.URL, "POST", "/sync/commands", caregiverID, map[string]any{
			"type":            "administration.record",
			"payload":         json.RawMessage(payload),
			"idempotency_key": due.Later[0].IdempotencyKey,
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 deduped enqueue, got %d", st)
		}

		st, body = doReq(t, ts.URL, "POST", "/sync/replay", caregiverID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 replay, got %d body=%s", st, string(body))
		}
		var res struct {
			Applied int `json:"applied"`
			Failed  int `json:"failed"`
		}
		_ = json.Unmarshal(body, &res)
		if res.Applied != 1 || res.Failed != 0 {
			t.Fatalf("replay must apply the command: %s", string(body))
		}
	}

	// 12) Ya no queda nada pendiente del día
	{
		st, body := doReq(t, ts.URL, "GET", duePath, ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 due-doses, got %d", st)
		}
		var after dueGrouped
		_ = json.Unmarshal(body, &after)
		if len(after.Due) != 0 || len(after.Later) != 0 {
			t.Fatalf("both slots recorded, nothing should remain: body=%s", string(body))
		}
	}

	// 13) Reporte de adherencia del día: ambos slots tomados
	{
		st, body := doReq(t, ts.URL, "GET",
			"/households/"+householdID+"/animals/"+animalID+"/compliance?from=2025-06-10&to=2025-06-10",
			viewerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 compliance, got %d body=%s", st, string(body))
		}
		var report struct {
			Regimens []struct {
				RegimenID     string  `json:"regimen_id"`
				Expected      int     `json:"expected"`
				OnTime        int     `json:"on_time"`
				CompliancePct float64 `json:"compliance_pct"`
			} `json:"regimens"`
		}
		_ = json.Unmarshal(body, &report)
		if len(report.Regimens) != 1 {
			t.Fatalf("expected 1 regimen in report, body=%s", string(body))
		}
		rc := report.Regimens[0]
		if rc.Expected != 2 || rc.OnTime != 2 || rc.CompliancePct != 100 {
			t.Fatalf("unexpected compliance: %+v body=%s", rc, string(body))
		}
	}

	// 14) Un extraño no ve nada del hogar
	{
		st, _ := doReq(t, ts.URL, "GET", duePath, "stranger-1", nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 for stranger, got %d", st)
		}
	}
}

func TestHTTP_PRN_RequiresNonce(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	ownerID := "owner-1"
	householdID := createHousehold(t, ts.URL, ownerID, map[string]any{"name": "Casa"})
	animalID := createJSON(t, ts.URL, ownerID, "/households/"+householdID+"/animals", map[string]any{
		"name":    "Luna",
		"species": "cat",
	})
	medicationID := createJSON(t, ts.URL, ownerID, "/medications", map[string]any{
		"generic_name": "Gabapentin",
		"route":        "oral",
		"form":         "capsule",
	})
	regimenID := createJSON(t, ts.URL, ownerID, "/animals/"+animalID+"/regimens", map[string]any{
		"medication_id": medicationID,
		"schedule_type": "PRN",
	})

	// Sin nonce => 400
	st, _ := doReq(t, ts.URL, "POST", "/animals/"+animalID+"/administrations", ownerID, map[string]any{
		"regimen_id": regimenID,
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 PRN without nonce, got %d", st)
	}

	// Con nonce => 201; repetir el nonce colapsa
	first := recordAdmin(t, ts.URL, ownerID, animalID, map[string]any{
		"regimen_id":   regimenID,
		"client_nonce": "tap-1",
	})
	dup := recordAdmin(t, ts.URL, ownerID, animalID, map[string]any{
		"regimen_id":   regimenID,
		"client_nonce": "tap-1",
	})
	if dup.ID != first.ID {
		t.Fatalf("same nonce must collapse: %s vs %s", dup.ID, first.ID)
	}
	second := recordAdmin(t, ts.URL, ownerID, animalID, map[string]any{
		"regimen_id":   regimenID,
		"client_nonce": "tap-2",
	})
	if second.ID == first.ID {
		t.Fatal("new nonce must create a new record")
	}
	if first.Status != "PRN" {
		t.Fatalf("expected PRN status, got %s", first.Status)
	}
}

// -------------------------
// Helpers
// -------------------------

type dueItem struct {
	RegimenID       string `json:"regimen_id"`
	Target          string `json:"target"`
	IdempotencyKey  string `json:"idempotency_key"`
	IsOverdue       bool   `json:"is_overdue"`
	MinutesUntilDue int    `json:"minutes_until_due"`
}

type dueGrouped struct {
	Due   []dueItem `json:"due"`
	Later []dueItem `json:"later"`
	PRN   []dueItem `json:"prn"`
}

type adminResponse struct {
	ID              string `json:"id"`
	CaregiverUserID string `json:"caregiver_user_id"`
	Status          string `json:"status"`
	IdempotencyKey  string `json:"idempotency_key"`
}

func createHousehold(t *testing.T, baseURL, userID string, payload map[string]any) string {
	t.Helper()
	return createJSON(t, baseURL, userID, "/households", payload)
}

func invite(t *testing.T, baseURL, ownerID, householdID, userID, role string) string {
	t.Helper()
	return createJSON(t, baseURL, ownerID, "/households/"+householdID+"/invites", map[string]any{
		"user_id": userID,
		"role":    role,
	})
}

func accept(t *testing.T, baseURL, userID, membershipID string) {
	t.Helper()
	st, body := doReq(t, baseURL, "POST", "/memberships/"+membershipID+"/accept", userID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 accept, got %d body=%s", st, string(body))
	}
}

func recordAdmin(t *testing.T, baseURL, userID, animalID string, payload map[string]any) adminResponse {
	t.Helper()
	st, body := doReq(t, baseURL, "POST", "/animals/"+animalID+"/administrations", userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 record, got %d body=%s", st, string(body))
	}
	var resp adminResponse
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("record: missing id body=%s", string(body))
	}
	return resp
}

func createJSON(t *testing.T, baseURL, userID, path string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", path, userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 POST %s, got %d body=%s", path, st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("POST %s: missing id body=%s", path, string(body))
	}
	return resp.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
