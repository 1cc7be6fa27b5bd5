package store

import "testing"

func TestPncpLink(t *testing.T) {
	cases := []struct {
		controlNumber string
		want          string
	}{
		{
			"42498600000171-1-000586/2023-000007",
			"https://pncp.gov.br/pncp-api/v1/orgaos/42498600000171/compras/2023/586/atas/7/arquivos/1",
		},
		{
			"00394544000185-1-000001/2024-000001",
			"https://pncp.gov.br/pncp-api/v1/orgaos/00394544000185/compras/2024/1/atas/1/arquivos/1",
		},
	}
	for _, tc := range cases {
		a := Agreement{ControlNumber: tc.controlNumber}
		link := a.PncpLink()
		if link == nil {
			t.Errorf("PncpLink(%q) = nil", tc.controlNumber)
			continue
		}
		if *link != tc.want {
			t.Errorf("PncpLink(%q) = %q, want %q", tc.controlNumber, *link, tc.want)
		}
	}
}

func TestPncpLinkMalformed(t *testing.T) {
	cases := []string{
		"",
		"no-dashes-at/all",
		"42498600000171-1-000586",
		"42498600000171-1-000586/2023-notanumber",
		"42498600000171-1-nodash/2023",
	}
	for _, controlNumber := range cases {
		a := Agreement{ControlNumber: controlNumber}
		if link := a.PncpLink(); link != nil {
			t.Errorf("PncpLink(%q) = %q, want nil", controlNumber, *link)
		}
	}
}
