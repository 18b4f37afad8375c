package transport

import "strings"

// pathParts returns the URL path split by "/" with leading/trailing slashes trimmed
func pathParts(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

// ParseReceiptIDPath expects path like /receipts/{receipt_id}
func ParseReceiptIDPath(path string) (receiptID string, ok bool) {
	parts := pathParts(path)
	if len(parts) != 2 || parts[0] != "receipts" {
		return "", false
	}
	return parts[1], true
}

// ParseReceiptUsersPath expects path like /receipts/{receipt_id}/users
func ParseReceiptUsersPath(path string) (receiptID string, ok bool) {
	parts := pathParts(path)
	if len(parts) != 3 || parts[0] != "receipts" || parts[2] != "users" {
		return "", false
	}
	return parts[1], true
}

// ParseReceiptItemsPath expects path like /receipts/{receipt_id}/items
func ParseReceiptItemsPath(path string) (receiptID string, ok bool) {
	parts := pathParts(path)
	if len(parts) != 3 || parts[0] != "receipts" || parts[2] != "items" {
		return "", false
	}
	return parts[1], true
}

// ParseItemAssignPath expects path like /receipts/{receipt_id}/items/{item_id}/assign
func ParseItemAssignPath(path string) (receiptID, itemID string, ok bool) {
	parts := pathParts(path)
	if len(parts) != 5 || parts[0] != "receipts" || parts[2] != "items" || parts[4] != "assign" {
		return "", "", false
	}
	return parts[1], parts[3], true
}

// ParseReceiptSplitPath expects path like /receipts/{receipt_id}/split
func ParseReceiptSplitPath(path string) (receiptID string, ok bool) {
	parts := pathParts(path)
	if len(parts) != 3 || parts[0] != "receipts" || parts[2] != "split" {
		return "", false
	}
	return parts[1], true
}
