package administrations

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// SlotKey deriva la clave idempotente de una dosis programada:
// (animal, régimen, día local, ordinal del slot en ese día). El mismo intento
// lógico —retry, replay offline, doble tap— produce siempre la misma clave;
// dos horarios distintos del mismo día producen claves distintas.
func SlotKey(animalID, regimenID, localDayISO string, slotIndex int) string {
	return hashKey("adm", animalID, regimenID, localDayISO, "slot", strconv.Itoa(slotIndex))
}

// PRNKey deriva la clave de una dosis PRN. Las dosis PRN nunca se deduplican
// por horario: cada toma es un evento distinto, así que la clave lleva un
// nonce generado por el cliente (uuid). El mismo nonce reintenta la misma
// toma; un nonce nuevo es una toma nueva.
func PRNKey(animalID, regimenID, localDayISO, clientNonce string) string {
	return hashKey("adm", animalID, regimenID, localDayISO, "prn", clientNonce)
}

func hashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
