package server

import (
	"net/http"
)

const legalLastUpdated = "January 1, 2026"

type legalDocument struct {
	title    string
	heading  string
	intro    string
	sections []legalSection
	closing  string
}

var legalDocuments = map[string]legalDocument{
	"/privacy-policy": {
		title:   "Privacy Policy",
		heading: "Privacy Policy",
		intro:   "How Vawraek Technology handles information about players of The Quinfall.",
		sections: []legalSection{
			{Title: "1. Data Collection", Body: []string{
				`Vawraek Technology ("we," "us," or "our") collects information to provide better services to all our players. This includes basic information like your email address and game performance data, as well as more complex information such as items traded within The Quinfall marketplace.`,
			}},
			{Title: "2. Usage of Information", Body: []string{
				"We use the information we collect from our services to provide, maintain, protect, and improve them, develop new features, and ensure the security of our players and systems.",
			}},
			{Title: "3. Information Sharing", Body: []string{
				"We do not share personal information with companies, organizations, or individuals outside of Vawraek Technology except with your consent, for external processing, or when legally required.",
			}},
			{Title: "4. Data Security", Body: []string{
				"We implement industry-standard security measures to protect your data from unauthorized access, alteration, disclosure, or destruction. This includes encryption, secure storage practices, and regular security reviews.",
			}},
			{Title: "5. Cookie Policy", Body: []string{
				"The Quinfall uses cookies and similar technologies to enhance user experience, analyze gameplay behavior, and maintain secure sessions. Cookies may include authentication tokens, preference settings, and analytics identifiers.",
				"You can control or disable cookies through your browser settings. However, disabling cookies may affect certain features of the game and website.",
			}},
		},
		closing: "This policy was last updated on " + legalLastUpdated + ". Vawraek Technology reserves the right to update, amend, or modify this policy at any time without prior notice.",
	},
	"/legal-notice": {
		title:   "Legal Notice",
		heading: "Legal Notice",
		intro:   "Legal and corporate information related to The Quinfall.",
		sections: []legalSection{
			{Title: "1. Corporate Information", Body: []string{
				"The Quinfall is developed and published by Vawraek Technology.",
			}},
			{Title: "2. Intellectual Property", Body: []string{
				"All content on this website, including but not limited to text, graphics, logos, images, audio clips, digital downloads, data compilations, and software, is the property of Vawraek Technology or its content suppliers and is protected by international copyright laws.",
				"The compilation of all content on this site is the exclusive property of Vawraek Technology, with copyright authorship for this collection by Vawraek Technology, and protected by international copyright laws.",
			}},
			{Title: "3. Trademarks", Body: []string{
				`"The Quinfall," "Vawraek," and other marks indicated on our site are registered trademarks of Vawraek Technology. Vawraek Technology's trademarks and trade dress may not be used in connection with any product or service that is not Vawraek Technology's, in any manner that is likely to cause confusion among customers, or in any manner that disparages or discredits Vawraek Technology.`,
			}},
			{Title: "4. Disclaimer of Liability", Body: []string{
				"The materials on Vawraek Technology's website are provided on an 'as is' basis. Vawraek Technology makes no warranties, expressed or implied, and hereby disclaims and negates all other warranties including, without limitation, implied warranties or conditions of merchantability, fitness for a particular purpose, or non-infringement of intellectual property or other violation of rights.",
			}},
			{Title: "5. Governing Law", Body: []string{
				"Any claim relating to Vawraek Technology's website shall be governed by the laws of the jurisdiction in which the company is headquartered without regard to its conflict of law provisions.",
			}},
		},
		closing: "This notice was last updated on " + legalLastUpdated + ". Vawraek Technology reserves the right to update, amend, or modify this notice at any time without prior notice.",
	},
}

func (s *server) handleLegal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, "GET, HEAD")
		return
	}
	doc, ok := legalDocuments[r.URL.Path]
	if !ok {
		s.notFound(w, r)
		return
	}
	s.renderPage(w, "legal", http.StatusOK, legalPageData{
		basePageData: s.buildBasePageData(r, s.pageTitle(doc.title), doc.intro, r.URL.Path),
		Heading:      doc.heading,
		Intro:        doc.intro,
		Sections:     doc.sections,
		Closing:      doc.closing,
	})
}
