package listing

import "testing"

func TestParseJSON(t *testing.T) {
	body := []byte(`[
	  {"company_name": "Shopify", "title": "Backend Intern - Summer 2026", "locations": ["Toronto, ON", "Remote"], "url": "https://shopify.com/careers/1", "date_posted": 1772884800, "active": true},
	  {"company": "↳", "role": "Frontend Intern", "location": "Ottawa, ON", "apply_url": "shopify.com/careers/2", "age": "4d"},
	  {"company": "Closed Co", "role": "Intern", "apply_url": "", "active": false},
	  {"company": "NoLink", "role": "Intern", "age": 2}
	]`)
	got, err := ParseStructured(body, "application/json", Options{Now: testNow, Term: "Summer 2026"})
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Active.Rows) != 2 || got.Active.Skipped != 1 {
		t.Fatalf("active rows=%d skipped=%d errors=%v", len(got.Active.Rows), got.Active.Skipped, got.Active.Errors)
	}
	first, second := got.Active.Rows[0], got.Active.Rows[1]
	if first.RoleTitle != "Backend Intern" || first.Location != "Toronto, ON; Remote" {
		t.Fatalf("first: %+v", first)
	}
	// 1772884800 = 2026-03-07T12:00:00Z
	if first.AgeDays != 3 {
		t.Fatalf("epoch age = %d", first.AgeDays)
	}
	if second.CompanyName != "Shopify" || second.ApplyURL != "https://shopify.com/careers/2" || second.AgeDays != 4 {
		t.Fatalf("second: %+v", second)
	}
	if len(got.Inactive.Rows) != 1 || got.Inactive.Rows[0].CompanyName != "Closed Co" {
		t.Fatalf("inactive: %+v", got.Inactive)
	}
}

func TestParseJSONWrapped(t *testing.T) {
	body := []byte(`{"listings": [{"company": "A", "role": "Intern", "url": "https://a/1"}]}`)
	got, err := ParseJSON(body, Options{Now: testNow})
	if err != nil || len(got.Active.Rows) != 1 {
		t.Fatalf("got %+v err=%v", got, err)
	}
	if _, err := ParseJSON([]byte(`{"unrelated": true}`), Options{Now: testNow}); err == nil {
		t.Fatal("expected error for object without listings")
	}
}

func TestParseCSV(t *testing.T) {
	body := []byte("Company,Role,Location,Apply URL,Age\n" +
		"Acme,Data Intern (Summer 2026),\"Toronto, ON\",https://acme.io/1,3d\n" +
		"↳,ML Intern,Remote,https://acme.io/2,1d\n" +
		"Broken\n" +
		"Beta,Intern,Remote,,1d\n")
	got, err := ParseStructured(body, "text/csv", Options{Now: testNow})
	if err != nil {
		t.Fatal(err)
	}
	res := got.Active
	if len(res.Rows) != 2 || res.Skipped != 2 {
		t.Fatalf("rows=%d skipped=%d errors=%v", len(res.Rows), res.Skipped, res.Errors)
	}
	if res.Rows[0].RoleTitle != "Data Intern" || res.Rows[0].Location != "Toronto, ON" || res.Rows[0].AgeDays != 3 {
		t.Fatalf("first: %+v", res.Rows[0])
	}
	if res.Rows[1].CompanyName != "Acme" {
		t.Fatalf("continuation: %+v", res.Rows[1])
	}
}

func TestParseStructuredRejectsHTML(t *testing.T) {
	if _, err := ParseStructured([]byte("<html></html>"), "text/html", Options{}); err == nil {
		t.Fatal("expected html body to be rejected")
	}
	if _, err := ParseStructured([]byte("   "), "", Options{}); err == nil {
		t.Fatal("expected empty body to be rejected")
	}
}
