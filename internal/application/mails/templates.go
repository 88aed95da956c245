package mails

const partials = `
{{define "product"}}Produkt: {{.Product}}
Format: {{.Format}}
{{if .HasPages}}Umfang: {{.Pages}}
{{end}}{{if .HasFold}}Falzart: {{.Fold}}
{{end}}{{with .ColorLabel}}Farbigkeit: {{.}}
{{end}}Auflage: {{.Quantity}} Stück
Material: {{.Material}}
{{end}}

{{define "delivery"}}{{if .Order.Ships}}Art: Versand per DPD
{{if .Order.Delivery.ShippingAddress}}Lieferadresse (abweichend von Rechnungsadresse):{{else}}Lieferadresse:{{end}}
{{with .Order.DeliveryAddress}}{{.Name}}
{{.Street}}
{{.Zip}} {{.City}}
{{end}}{{else}}Art: Abholung
{{with .Shop.PickupAddress}}Abholadresse: {{.}}
{{end}}{{with .Shop.PickupHours}}Abholzeiten: {{.}}
{{end}}{{end}}{{end}}

{{define "contact"}}{{with .Company}}{{.}}
{{end}}{{.FirstName}} {{.LastName}}
{{.Street}}
{{.Zip}} {{.City}}
E-Mail: {{.Email}}
{{end}}

{{define "missingFile"}}
================================================================
WICHTIG: DRUCKDATEI ERFORDERLICH
================================================================
Sie haben noch keine Druckdatei hochgeladen!

Bitte senden Sie bis {{.Deadline}}
die Druckdatei (PDF) an: {{.Shop.PrintDataEmail}}

Geben Sie dabei bitte im Betreff die Job-ID an:
{{or .JobID "[wird nachgereicht]"}}

Ohne Druckdatei können wir Ihren Auftrag leider nicht bearbeiten.
================================================================
{{end}}

{{define "signature"}}Bei Fragen stehen wir Ihnen gerne zur Verfügung.

Mit freundlichen Grüßen
Ihr Team von {{.Name}}

---
{{.Name}}
{{with .Phone}}Telefon: {{.}}
{{end}}{{with .Email}}E-Mail: {{.}}
{{end}}{{with .Web}}Web: {{.}}
{{end}}{{end}}
`

const orderConfirmationRequest = `Guten Tag {{.Order.Customer.FirstName}} {{.Order.Customer.LastName}},

Sie haben eine Bestellung bei {{.Shop.Name}} aufgegeben.

Um sicherzustellen, dass diese E-Mail-Adresse Ihnen gehört, bitten wir Sie,
Ihre Bestellung zu bestätigen, indem Sie auf den folgenden Link klicken:

{{.Link}}

IHRE BESTELLUNG:
----------------
Auftragsname: {{.Order.JobName}}
{{template "product" .Order.Product}}
Gesamtpreis: {{money .Order.Prices.GrandTotal}} €

WICHTIG:
--------
- Dieser Bestätigungslink ist {{.Validity}} gültig
- Erst nach Ihrer Bestätigung wird die Bestellung bearbeitet
- Falls Sie diese Bestellung nicht aufgegeben haben, können Sie diese E-Mail ignorieren

{{template "signature" .Shop}}`

const emailVerification = `Guten Tag,

vielen Dank für Ihr Interesse an {{.Shop.Name}}!

Um sicherzustellen, dass diese E-Mail-Adresse Ihnen gehört, bitten wir Sie,
Ihre E-Mail-Adresse zu verifizieren, indem Sie auf den folgenden Link klicken:

{{.Link}}

Nach der Verifizierung können Sie mit Ihrer Bestellung fortfahren.

WICHTIG:
--------
- Dieser Verifizierungslink ist {{.Validity}} gültig
- Nach der Verifizierung werden Ihre bisherigen Kundendaten automatisch geladen (falls vorhanden)
- Falls Sie diese Anfrage nicht gestellt haben, können Sie diese E-Mail ignorieren

{{template "signature" .Shop}}`

const operatorNotice = `Neue BESTÄTIGTE Bestellung

AUFTRAGSNAME: {{.Order.JobName}}
========================================
{{with .JobID}}Job-ID: {{.}}
{{end}}
PRODUKTINFORMATIONEN:
---------------------
{{template "product" .Order.Product}}
PREISBERECHNUNG:
----------------
Produktpreis netto: {{money .Order.Prices.NetTotal}} €
{{with .Order.Prices.Shipping}}Versandkosten netto: {{money .Net}} €
Gesamtpreis netto: {{money $.Order.Prices.NetTotalWithShipping}} €
{{end}}zzgl. 19% MwSt.: {{money .Order.Prices.TotalVAT}} €
GESAMTPREIS BRUTTO: {{money .Order.Prices.GrandTotal}} €

KUNDENDATEN:
------------
{{template "contact" .Order.Customer}}{{with .Order.BillingAddress}}
ABWEICHENDE RECHNUNGSADRESSE:
-----------------------------
Firma: {{.Company}}
Adresse: {{.Street}}
         {{.Zip}} {{.City}}
Land: {{.Country}}
{{end}}{{with .Order.BillingEmail}}
ABWEICHENDE E-MAIL FÜR RECHNUNGSVERSAND:
----------------------------------------
E-Mail: {{.}}
{{end}}
LIEFERUNG:
----------
{{template "delivery" .}}
Datenschutz akzeptiert: {{if .Order.Customer.Privacy}}Ja{{else}}Nein{{end}}
{{if .Files}}
Anhang: {{join .Files ", "}}
{{range .FileLinks}}  {{.}}
{{end}}{{else}}
ACHTUNG: KEINE DRUCKDATEI HOCHGELADEN!
   --> Kunde muss PDF bis {{.Deadline}} an {{.Shop.PrintDataEmail}} senden
   --> Job-ID: {{or .JobID "[N/A]"}}
{{end}}
HINWEIS: {{.Verification}}
{{with .CustomerNote}}
[{{.}}]
{{end}}`

const customerConfirmation = `Guten Tag {{.Order.Customer.FirstName}} {{.Order.Customer.LastName}},

vielen Dank für Ihre Bestellung bei {{.Shop.Name}}!

Wir haben Ihre Anfrage erhalten und werden diese schnellstmöglich prüfen.
Sie erhalten in Kürze eine detaillierte Auftragsbestätigung von uns.

IHRE BESTELLUNG:
----------------
Auftragsname: {{.Order.JobName}}
{{template "product" .Order.Product}}
PREIS:
------
Produktpreis (brutto): {{money .Order.Prices.GrossTotal}} €
{{with .Order.Prices.Shipping}}Versandkosten (brutto): {{money .Gross}} €
------
{{end}}Gesamtpreis (brutto): {{money .Order.Prices.GrandTotal}} €

LIEFERUNG:
----------
{{template "delivery" .}}
IHRE KONTAKTDATEN:
------------------
{{template "contact" .Order.Customer}}{{with .Order.BillingAddress}}
ABWEICHENDE RECHNUNGSADRESSE:
-----------------------------
{{.Company}}
{{.Street}}
{{.Zip}} {{.City}}
Land: {{.Country}}
{{end}}{{with .Order.BillingEmail}}
ABWEICHENDE E-MAIL FÜR RECHNUNGSVERSAND:
----------------------------------------
{{.}}
{{end}}{{if not .Files}}{{template "missingFile" .}}{{end}}
{{template "signature" .Shop}}`

const operatorSMS = `Neue Bestellung: {{.Order.JobName}} ({{.Order.Customer.LastName}}), {{money .Order.Prices.GrandTotal}} EUR{{with .JobID}}, Job {{.}}{{end}}`
